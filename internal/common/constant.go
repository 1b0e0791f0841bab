package common

// TimestampLayout is the wall-clock format used for mailbox entries on the
// wire.
const TimestampLayout = "2006-01-02 15:04:05"
