package domain

import "strings"

// The quiz authority rejects entry and join attempts with human-readable
// reason strings. Classification is by keyword, matching the wording the
// server actually sends.

// EntryRejection classifies a rejected enter-quiz command.
type EntryRejection int

const (
	// EntryAlreadyParticipated: the participant already played today's quiz.
	EntryAlreadyParticipated EntryRejection = iota
	// EntryCapacityFull: maximum participant count reached.
	EntryCapacityFull
	// EntryNotEligible: quiz unavailable or payment required.
	EntryNotEligible
	// EntryAssumeParticipant: unrecognized client-error reason. Treated
	// optimistically as "already a participant" and followed by a direct
	// reconnect. This may mask genuine entry failures; kept as-is.
	EntryAssumeParticipant
	// EntryFailed: anything else (server error, transport failure).
	EntryFailed
)

// ClassifyEntryRejection maps an enter-quiz HTTP status and reason message
// onto an EntryRejection.
func ClassifyEntryRejection(statusCode int, message string) EntryRejection {
	msg := strings.ToLower(message)
	switch statusCode {
	case 400:
		switch {
		case strings.Contains(msg, "already participated"):
			return EntryAlreadyParticipated
		case strings.Contains(msg, "full"), strings.Contains(msg, "capacity"):
			return EntryCapacityFull
		default:
			return EntryAssumeParticipant
		}
	case 403:
		return EntryNotEligible
	default:
		return EntryFailed
	}
}

// JoinRejection classifies a join-error channel event.
type JoinRejection int

const (
	// JoinAlreadyConnected: another socket for this participant is still
	// registered; the server drops it, so one delayed retry succeeds.
	JoinAlreadyConnected JoinRejection = iota
	// JoinNotEligible: registration or payment missing.
	JoinNotEligible
	// JoinNotLive: the quiz is not accepting joins yet.
	JoinNotLive
	// JoinOther: unclassified join failure.
	JoinOther
)

// ClassifyJoinRejection maps a join-error message onto a JoinRejection.
func ClassifyJoinRejection(message string) JoinRejection {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "already connected"):
		return JoinAlreadyConnected
	case strings.Contains(msg, "not registered"), strings.Contains(msg, "payment"):
		return JoinNotEligible
	case strings.Contains(msg, "not live"):
		return JoinNotLive
	default:
		return JoinOther
	}
}
