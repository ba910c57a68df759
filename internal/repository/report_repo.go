package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

// Create appends a report. Reports are never deduplicated.
func (r *ReportRepository) Create(ctx context.Context, reporterID, reportedID, reason string) (*db.Report, error) {
	rep := db.Report{ReporterID: reporterID, ReportedID: reportedID, Reason: reason}
	if err := r.db.WithContext(ctx).Create(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}
