// Package domain contains the core business entities and domain logic of
// the newsletter service: companies, newsletters, generated sections, and
// the queue items tracking per-section generation work. It is independent
// of any specific infrastructure or delivery mechanism.
package domain
