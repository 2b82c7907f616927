// Package delegate admits method calls one at a time, gates them on storage permissions and
// dispatches them to the entity loaders.
//
// Calls are parsed into typed requests ([ReadRequest], [WriteRequest]) before dispatch, so the
// set of supported methods is the set of request types.
package delegate
