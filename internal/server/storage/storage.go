// Package storage keeps file attachments. Callers hand over bytes and a file
// name and get back an opaque handle that is recorded in mailboxes.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/dmitrijs2005/realmchat/internal/common"
)

// Store persists attachment bytes.
type Store interface {
	// Put stores data under a location derived from name and returns the
	// handle to record. Storing twice under the same name replaces the data.
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// BaseName reduces a client supplied path to its last element. Both slash
// styles are accepted since the path comes from arbitrary clients.
func BaseName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return "", common.ErrInvalidFileName
	}
	return base, nil
}
