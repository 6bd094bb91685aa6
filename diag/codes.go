package diag

// Code classifies fatal diagnostics.
// ENUM(style, selector, recursion, convergence, introspection, overflow)
type Code int
