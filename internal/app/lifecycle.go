package app

import "servicecatalog.io/catalog/internal/pkg/logger"

// Shutdown releases the database pool. Safe on a partially built Application.
func (a *Application) Shutdown() {
	if a == nil || a.DB == nil {
		return
	}
	a.DB.Close()
	logger.Info("Database pool closed")
}
