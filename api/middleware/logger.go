package middleware

import "github.com/Annany2002/nebula-uploads/internal/logger"

var customLog = logger.NewLogger()
