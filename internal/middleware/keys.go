package middleware

// UserIDKey is the gin context key holding the signed-in user's id.
const UserIDKey = "uid"
