package models

// Poll is a question with a set of selectable options.
type Poll struct {
	ID       int64        `json:"id"`
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
}

// PollSummary is the list projection of a poll, without its options.
type PollSummary struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
}

// PollOption is one answer of a poll along with its vote counter.
type PollOption struct {
	ID         int64  `json:"id"`
	PollID     int64  `json:"-"`
	OptionText string `json:"option_text"`
	Votes      int64  `json:"votes"`
}
