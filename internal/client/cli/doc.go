// Package cli implements sheetctl, the operator tool for cheat sheets.
//
// Commands:
//
//	verify [-json] <file.pdf>   run the extraction pipeline locally
//	issue  -course-id ... -o f  compose a personalized sheet offline
//	token  -user ...            mint a development bearer token
//	upload -server ... <file>   submit a sheet to a running server
//
// Secrets and limits come from the server configuration sources (.env,
// environment and the -c JSON file), so a local verify sees the same QR
// signing key as the server.
package cli
