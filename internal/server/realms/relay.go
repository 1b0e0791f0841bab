package realms

import (
	"encoding/base64"

	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

// Commands a link uses to hand relays to the peer.
const (
	CommandReceiveMessage = "receive_private_realm_message"
	CommandReceiveFile    = "receive_file_realm"
)

// Relay is one message or file on its way to a single recipient on the peer
// realm. A relay with a non-empty FileName carries Data instead of Message.
type Relay struct {
	Sender    string
	Recipient string
	Message   string
	FileName  string
	Data      []byte
}

func (r *Relay) isFile() bool { return r.FileName != "" }

// request encodes r as the request line the peer expects. origin is the name
// of this realm, which the peer uses to tag the delivered entry.
func (r *Relay) request(origin string) string {
	if r.isFile() {
		return protocol.FormatRequest(CommandReceiveFile,
			r.Sender, origin, r.Recipient, r.FileName, base64.StdEncoding.EncodeToString(r.Data))
	}
	return protocol.FormatRequest(CommandReceiveMessage, r.Sender, origin, r.Recipient, r.Message)
}
