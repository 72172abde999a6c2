// Package httpapi exposes the catalog and circulation managers over a JSON
// HTTP interface. It is a thin embedding surface: all rules live in the
// managers, the handlers only decode requests, dispatch, and map the error
// taxonomy onto status codes.
//
// Identity is delegated to an upstream gateway: the caller-supplied X-User-ID
// header is trusted as the acting user.
package httpapi
