package model

// Question is an anonymous submission addressed to a receiver.
//
// SENDER ANONYMITY IS STRUCTURAL:
// SenderID exists in the document format but is never written — there is
// no code path that populates it, and the intake API has no parameter for
// it. Anonymity is not an access-control rule that could be misconfigured;
// the identity simply never reaches the store.
//
// IsAnswered is monotonic: it transitions false→true at most once (see the
// publication service) and never reverses.
type Question struct {
	ID         string  `json:"id"`
	ReceiverID string  `json:"receiverId"`
	Text       string  `json:"text"`
	Timestamp  int64   `json:"timestamp"` // epoch ms, server-stamped
	IsAnswered bool    `json:"isAnswered"`
	Theme      string  `json:"theme"`              // cosmetic tag chosen by the sender
	SenderID   *string `json:"senderId,omitempty"` // always nil
}

// MaxQuestionLength bounds the anonymous question text.
const MaxQuestionLength = 300
