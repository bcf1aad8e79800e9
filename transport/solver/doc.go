// Package solver is the HTTP client of the external Klotski solving service.
//
// The service exposes two endpoints that both take the board as a JSON object
// keyed by piece id:
//
//	POST /solve  {"0":{"row":0,"col":1},...} -> {"moves":[{"id":5,"drow":0,"dcol":-1},...]}
//	POST /hint   {"0":{"row":0,"col":1},...} -> {"id":5,"drow":0,"dcol":-1}
//
// Non-2xx answers become *StatusError. Moves that are not a single step along
// one axis are rejected with ErrMalformedResponse before anyone can apply them.
package solver
