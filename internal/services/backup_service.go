package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/xuri/excelize/v2"

	"github.com/SURE-Trust/certificate-service/internal/events"
)

const backupSheet = "IssuedBackup"

// BackupService mirrors every issued certificate into a spreadsheet row.
// It is a best-effort audit trail for deployments whose primary store is
// not the workbook backend; write failures are logged and never block
// issuance, since the consumer runs off the event stream.
type BackupService struct {
	path   string
	logger *slog.Logger
}

func NewBackupService(path string, logger *slog.Logger) *BackupService {
	return &BackupService{path: path, logger: logger}
}

// Run consumes the event stream and appends one row per issued
// certificate. Blocks until ctx is cancelled.
func (s *BackupService) Run(ctx context.Context, subscriber message.Subscriber, topic string) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if issued, ok := decodeIssuedEvent(msg); ok {
				if err := s.appendRow(issued); err != nil {
					s.logger.Error("backup row write failed", "error", err, "ref_no", issued.RefNo)
				}
			}
			msg.Ack()
		}
	}
}

func decodeIssuedEvent(msg *message.Message) (*events.CertificateIssuedEvent, bool) {
	var envelope events.Event
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return nil, false
	}
	if envelope.Type != events.EventCertificateIssued {
		return nil, false
	}
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		return nil, false
	}
	var issued events.CertificateIssuedEvent
	if err := json.Unmarshal(raw, &issued); err != nil {
		return nil, false
	}
	return &issued, true
}

func (s *BackupService) appendRow(issued *events.CertificateIssuedEvent) error {
	file, created, err := s.openWorkbook()
	if err != nil {
		return err
	}
	defer file.Close()

	rows, err := file.GetRows(backupSheet)
	if err != nil {
		return fmt.Errorf("read backup sheet: %w", err)
	}

	row := []interface{}{
		issued.RefNo,
		issued.HolderName,
		issued.HolderEmail,
		issued.Course,
		issued.VerificationURL,
		time.Now().Format(time.RFC3339),
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("backup cell name: %w", err)
	}
	if err := file.SetSheetRow(backupSheet, cell, &row); err != nil {
		return fmt.Errorf("write backup row: %w", err)
	}

	if created {
		return file.SaveAs(s.path)
	}
	return file.Save()
}

func (s *BackupService) openWorkbook() (*excelize.File, bool, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		file := excelize.NewFile()
		if _, err := file.NewSheet(backupSheet); err != nil {
			file.Close()
			return nil, false, fmt.Errorf("create backup sheet: %w", err)
		}
		file.DeleteSheet("Sheet1")
		header := []interface{}{"ref_no", "holder_name", "holder_email", "course", "verification_url", "backed_up_at"}
		if err := file.SetSheetRow(backupSheet, "A1", &header); err != nil {
			file.Close()
			return nil, false, fmt.Errorf("write backup header: %w", err)
		}
		return file, true, nil
	}

	file, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, false, fmt.Errorf("open backup workbook: %w", err)
	}
	if idx, err := file.GetSheetIndex(backupSheet); err != nil || idx < 0 {
		if _, err := file.NewSheet(backupSheet); err != nil {
			file.Close()
			return nil, false, fmt.Errorf("create backup sheet: %w", err)
		}
		header := []interface{}{"ref_no", "holder_name", "holder_email", "course", "verification_url", "backed_up_at"}
		if err := file.SetSheetRow(backupSheet, "A1", &header); err != nil {
			file.Close()
			return nil, false, fmt.Errorf("write backup header: %w", err)
		}
	}
	return file, false, nil
}
