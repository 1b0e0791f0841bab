// Package cli provides the interactive realmchat shell.
//
// Lines typed by the user are sent to the server as they are and the JSON
// response is printed. A few local commands make that bearable:
//
//	login <user>                       prompt for the password, keep the token
//	register <user> <name> <country>   prompt for the password, keep the token
//	logout                             end the session on the server
//	file <recipient> <local path>      send a local file with send_file
//	help, exit, quit
//
// $TOKEN anywhere in a raw line is replaced by the current session token.
package cli
