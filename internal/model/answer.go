package model

// AuthorSnapshot is a point-in-time COPY of the author's public profile
// fields, taken at publish time. It is a value copy, not a foreign key:
// profile edits after publication do not retroactively update past
// answers. Do not "fix" this into a live join.
type AuthorSnapshot struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

// Answer is the public resolution of exactly one Question.
//
// QuestionText is a denormalized snapshot of the question's text at
// publish time, for the same reason as AuthorSnapshot — the feed renders
// from the answer document alone, with no second lookup.
//
// INVARIANT: Likes == len(LikedBy) at all times. Both are mutated together
// in a single atomic document update (see the answers repository); the
// counter is never read-modify-written as a bare number.
type Answer struct {
	ID           string         `json:"id"`
	QuestionID   string         `json:"questionId"`
	UserID       string         `json:"userId"` // the receiver/author
	QuestionText string         `json:"questionText"`
	AnswerText   string         `json:"answerText"`
	Timestamp    int64          `json:"timestamp"` // epoch ms, server-stamped
	Likes        int            `json:"likes"`
	LikedBy      []string       `json:"likedBy"`
	Author       AuthorSnapshot `json:"author"`
}

// LikedByContains reports whether viewerID is in the LikedBy set.
func (a *Answer) LikedByContains(viewerID string) bool {
	for _, v := range a.LikedBy {
		if v == viewerID {
			return true
		}
	}
	return false
}
