package core

import "errors"

// Failure taxonomy for the Auto-DJ pipeline. Producers wrap these with %w;
// the controller classifies with errors.Is at the boundary.
var (
	// ErrParseFailure: the recommendation backend returned text that does
	// not contain a usable candidate.
	ErrParseFailure = errors.New("unparseable recommendation response")

	// ErrNotFound: a candidate did not resolve to any catalog track above
	// the relevance threshold.
	ErrNotFound = errors.New("track not found")

	// ErrRepeatRejected: the resolved track was played or queued too
	// recently. Expected behavior, logged at debug only.
	ErrRepeatRejected = errors.New("track rejected as recent repeat")

	// ErrUpstreamUnavailable: the recommendation or playback service is
	// unreachable or rate limiting us.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrRateLimited: the local gate refused a recommendation call.
	ErrRateLimited = errors.New("recommendation rate limit reached")

	// ErrPersistence: a durable store write failed. In-memory state stays
	// authoritative for the rest of the session.
	ErrPersistence = errors.New("persistence failure")
)
