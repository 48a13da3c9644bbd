// Package evaluation orchestrates claim evaluation requests.
//
// A Service resolves the disease, retrieves policy clauses (or takes them
// from the caller), runs the decision engine and publishes an audit event.
// The engine is swapped atomically when the vocabulary tables reload, so
// in-flight evaluations finish on the tables they started with.
//
// The HTTP handlers, the MCP tools and the local CLI mode all call into the
// same Service.
package evaluation
