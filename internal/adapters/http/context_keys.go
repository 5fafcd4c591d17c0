package http

// contextKey is a typed key for the context
type contextKey string

// userContextKey holds the Basic Auth user name
const userContextKey contextKey = "user"
