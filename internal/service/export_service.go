package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/internal/models"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
	"github.com/stitchline/atelier-api/pkg/export"
)

// ExportPacketStore is the read surface the exporters need.
type ExportPacketStore interface {
	GetByID(ctx context.Context, id string) (*models.Packet, error)
}

// ExportService renders printable pick-list sheets and timeline exports.
type ExportService struct {
	packets ExportPacketStore
	sheets  *export.SheetExporter
	csv     *export.CSVExporter
	logger  *zap.Logger
}

// NewExportService wires the exporters.
func NewExportService(packets ExportPacketStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		packets: packets,
		sheets:  export.NewSheetExporter(),
		csv:     export.NewCSVExporter(),
		logger:  logger,
	}
}

// PickListSheet renders the packet's current pick list as a printable PDF
// for the warehouse floor.
func (s *ExportService) PickListSheet(ctx context.Context, packetID string) ([]byte, string, error) {
	packet, err := s.loadPacket(ctx, packetID)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{Columns: []string{"Piece", "Material", "SKU", "Qty", "Unit", "Rack", "Picked"}}
	for _, item := range packet.PickList {
		picked := "no"
		if item.IsPicked {
			picked = "yes"
		}
		table.AddRow(item.Piece, item.Name, item.SKU,
			fmt.Sprintf("%.2f", item.RequiredQty), item.Unit, item.RackLocation, picked)
	}

	header := export.SheetHeader{
		Title:    "Pick List",
		Subtitle: fmt.Sprintf("Packet %s, round %d", packet.ID, packet.PacketRound),
	}
	// Material gets the widest column; qty, unit and the picked tick stay narrow.
	data, err := s.sheets.Render(table, header, []float64{3, 5, 3, 2, 2, 2, 2})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pick list sheet")
	}
	filename := fmt.Sprintf("picklist-%s-r%d.pdf", packet.ID, packet.PacketRound)
	return data, filename, nil
}

// TimelineCSV renders the packet's append-only history as CSV.
func (s *ExportService) TimelineCSV(ctx context.Context, packetID string) ([]byte, string, error) {
	packet, err := s.loadPacket(ctx, packetID)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{Columns: []string{"Timestamp", "Action", "User", "Details"}}
	for _, entry := range packet.Timeline {
		table.AddRow(entry.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			entry.Action, entry.UserID, entry.Details)
	}

	data, err := s.csv.Render(table)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timeline export")
	}
	filename := fmt.Sprintf("timeline-%s.csv", packet.ID)
	return data, filename, nil
}

func (s *ExportService) loadPacket(ctx context.Context, packetID string) (*models.Packet, error) {
	packet, err := s.packets.GetByID(ctx, packetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "packet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load packet")
	}
	return packet, nil
}
