package mailbox

import "time"

// Entry is one mailbox record. Attachments set FilePath and leave Message
// empty; text entries carry their body in Message, which may itself be
// empty. Realm is empty for local traffic.
type Entry struct {
	ID        string
	Sender    string
	Recipient string
	Message   string
	FilePath  string
	Realm     string
	CreatedAt time.Time
}

// Content is what a delivery carries: a text body or an attachment handle.
type Content struct {
	Message  string
	FilePath string
}

// Text is shorthand for a text Content.
func Text(msg string) Content { return Content{Message: msg} }

// File is shorthand for an attachment Content.
func File(handle string) Content { return Content{FilePath: handle} }
