package upload

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Annany2002/nebula-uploads/internal/domain"
)

// LogPipeline records accepted requests in the log. It stands in for the ingestion
// pipeline when none is attached.
type LogPipeline struct {
	Log *logrus.Logger
}

// NewLogPipeline creates a LogPipeline writing to the package logger.
func NewLogPipeline() *LogPipeline {
	return &LogPipeline{Log: customLog}
}

// Submit implements Pipeline.
func (p *LogPipeline) Submit(_ context.Context, req *domain.UploadRequest) error {
	p.Log.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"format":      req.Format,
		"user_id":     req.RequestedBy,
		"database_id": req.DatabaseID,
		"schema":      req.Schema,
		"table":       req.TableName,
		"if_exists":   req.IfExists,
		"files":       len(req.Files),
	}).Info("Upload request ready for ingestion")
	return nil
}
