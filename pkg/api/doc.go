// Package api defines the wire types usergate writes to clients: the
// success and error envelopes shared with the user-management API, and the
// gate error taxonomy.
//
// Every rejection produced by the gate (block, rate limit, credential or
// tenant failure) is a [GateError] rendered as an [ErrorResponse]:
//
//	{"success": false, "message": "...", "details": "..." | null, "result": null}
//
// The package performs no I/O.
package api
