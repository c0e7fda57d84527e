// Package vision adapts external image-classification backends to a single
// Classifier capability that yields raw domain.Candidate values.
//
// Classification is best-effort enrichment: an Adapter never returns an
// error. Network failures, non-success responses, malformed payloads, and
// timeouts all degrade to an empty candidate list so item creation is never
// blocked. Each call makes a single attempt; callers that want retries wrap
// the Adapter with their own policy.
//
// Three backends are available, selected at configuration time:
//
//   - GoogleVision: label detection plus localized object detection, 0–1 scores.
//   - Imagga: single tag detector, 0–100 scores, labels already localized.
//   - Claude: an Anthropic vision model prompted for labels with 0–1 scores.
package vision
