// Package generation defines the boundary between the queue worker and
// external AI/LLM services. It abstracts the details of LLM API
// integration (Gemini), allowing the worker to generate newsletter
// sections without coupling to a specific external service.
package generation
