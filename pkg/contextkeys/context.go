package contextkeys

type contextKey string

// DBContextKey stores the *gorm.DB (pool or request transaction).
const DBContextKey = contextKey("db")

// Keys the auth middleware sets on gin.Context.
const (
	UserIDKey  = "userID"
	IsAdminKey = "isAdmin"
)
