package http

import (
	"context"
	"io"

	"kuberdash/internal/charts"
	"kuberdash/internal/exporter"
	"kuberdash/internal/security"
	"kuberdash/internal/services"
	"kuberdash/internal/session"
	"kuberdash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dataset operations behind the API
type DashboardServiceInterface interface {
	State(ctx context.Context, sessionID string) (domain.AppState, error)
	ApplyEvent(ctx context.Context, sessionID string, ev session.Event) (domain.AppState, error)
	Upload(ctx context.Context, sessionID string, slot domain.Slot, filename string, size int64, r io.Reader) (*services.UploadResult, error)
	Dataset(ctx context.Context, sessionID string, slot domain.Slot) (*domain.Table, error)
	Grid(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState, limit int) (*services.GridResult, error)
	Summary(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState) (domain.Summary, error)
	Chart(ctx context.Context, sessionID string, slot domain.Slot, req domain.ChartRequest, filter domain.FilterState) (*domain.ChartSpec, error)
	RenderChart(ctx context.Context, w io.Writer, sessionID string, slot domain.Slot, req domain.ChartRequest, filter domain.FilterState, format charts.ImageFormat) error
	Correlation(ctx context.Context, sessionID string, slot domain.Slot, filter domain.FilterState) (*domain.Table, error)
	Export(ctx context.Context, w io.Writer, sessionID string, slot domain.Slot, format exporter.Format, filter domain.FilterState) error
	DownloadLink(ctx context.Context, sessionID string, slot domain.Slot, format exporter.Format, filename string, filter domain.FilterState) (string, error)
	Compare(ctx context.Context, sessionID string) (domain.ComparisonResult, error)
}

// AuthServiceInterface defines sign-up, login and user administration
type AuthServiceInterface interface {
	Signup(ctx context.Context, username, password, confirm string) (*security.User, error)
	Login(ctx context.Context, sessionID, username, password string) (domain.AppState, *security.User, error)
	Logout(ctx context.Context, sessionID string) (domain.AppState, error)
	Users(ctx context.Context) ([]security.User, error)
	SetRole(ctx context.Context, username string, role domain.Role) error
}
