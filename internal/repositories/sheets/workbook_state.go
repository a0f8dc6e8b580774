package sheets

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SURE-Trust/certificate-service/internal/models"
)

// workbookState is the in-memory image of the workbook. Reads are served
// from here; writes update it and rewrite the affected sheet.
type workbookState struct {
	submissions  map[uint]*models.Submission
	certificates map[uint]*models.Certificate
	certByRefNo  map[string]uint
	logs         []*models.VerificationLog

	nextSubmissionID  uint
	nextCertificateID uint
	nextLogID         uint
}

func newWorkbookState() *workbookState {
	return &workbookState{
		submissions:       make(map[uint]*models.Submission),
		certificates:      make(map[uint]*models.Certificate),
		certByRefNo:       make(map[string]uint),
		nextSubmissionID:  1,
		nextCertificateID: 1,
		nextLogID:         1,
	}
}

var (
	submissionHeader = []interface{}{
		"ID", "Type", "FullName", "Email", "CourseName", "BatchInitials",
		"StartDate", "EndDate", "GPA", "TrainingHours", "TrainingType",
		"Status", "CreatedAt",
	}
	certificateHeader = []interface{}{
		"ID", "RefNo", "VerificationURL", "Type", "HolderName", "Course",
		"Batch", "StartDate", "EndDate", "GPA", "IssueDate", "TemplateFile",
		"PDFPath", "ImagePath", "IsActive", "VerificationCount",
		"LastVerifiedAt", "UserID", "SubmissionID", "CreatedAt",
	}
	verificationLogHeader = []interface{}{
		"ID", "CertificateID", "RefNo", "IPAddress", "UserAgent", "Status", "CreatedAt",
	}
)

func (r *SheetsRepository) writeHeaders() {
	r.file.SetSheetRow(sheetSubmissions, "A1", &submissionHeader)
	r.file.SetSheetRow(sheetCertificates, "A1", &certificateHeader)
	r.file.SetSheetRow(sheetVerificationLogs, "A1", &verificationLogHeader)
}

// ===== ROW ENCODING =====

func submissionRow(s *models.Submission) []interface{} {
	return []interface{}{
		strconv.FormatUint(uint64(s.ID), 10),
		string(s.CertificateType),
		s.FullName,
		s.Email,
		s.CourseName,
		s.BatchInitials,
		timeCell(s.StartDate),
		timeCell(s.EndDate),
		floatCell(s.GPA),
		floatCell(s.TrainingHours),
		strCell(s.TrainingType),
		string(s.Status),
		s.CreatedAt.Format(time.RFC3339),
	}
}

func certificateRow(c *models.Certificate) []interface{} {
	return []interface{}{
		strconv.FormatUint(uint64(c.ID), 10),
		c.RefNo,
		c.VerificationURL,
		string(c.CertificateType),
		c.HolderName,
		c.Course,
		c.Batch,
		timeCell(c.StartDate),
		timeCell(c.EndDate),
		floatCell(c.GPA),
		c.IssueDate.Format(time.RFC3339),
		c.TemplateFile,
		c.PDFPath,
		c.ImagePath,
		strconv.FormatBool(c.IsActive),
		strconv.FormatInt(c.VerificationCount, 10),
		timeCell(c.LastVerifiedAt),
		uintCell(c.UserID),
		strconv.FormatUint(uint64(c.SubmissionID), 10),
		c.CreatedAt.Format(time.RFC3339),
	}
}

func verificationLogRow(v *models.VerificationLog) []interface{} {
	return []interface{}{
		strconv.FormatUint(uint64(v.ID), 10),
		uintCell(v.CertificateID),
		v.RefNo,
		strCell(v.IPAddress),
		strCell(v.UserAgent),
		string(v.Status),
		v.CreatedAt.Format(time.RFC3339),
	}
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func floatCell(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uintCell(u *uint) string {
	if u == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*u), 10)
}

// ===== ROW DECODING =====

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseUint(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 64)
	return uint(v)
}

func parseOptUint(s string) *uint {
	if s == "" {
		return nil
	}
	v := parseUint(s)
	return &v
}

func parseOptFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseOptTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseSubmissionRow(row []string) *models.Submission {
	return &models.Submission{
		ID:              parseUint(cell(row, 0)),
		CertificateType: models.CertificateType(cell(row, 1)),
		FullName:        cell(row, 2),
		Email:           cell(row, 3),
		CourseName:      cell(row, 4),
		BatchInitials:   cell(row, 5),
		StartDate:       parseOptTime(cell(row, 6)),
		EndDate:         parseOptTime(cell(row, 7)),
		GPA:             parseOptFloat(cell(row, 8)),
		TrainingHours:   parseOptFloat(cell(row, 9)),
		TrainingType:    parseOptStr(cell(row, 10)),
		Status:          models.SubmissionStatus(cell(row, 11)),
		CreatedAt:       parseTime(cell(row, 12)),
	}
}

func parseCertificateRow(row []string) *models.Certificate {
	isActive, _ := strconv.ParseBool(cell(row, 14))
	count, _ := strconv.ParseInt(cell(row, 15), 10, 64)
	return &models.Certificate{
		ID:                parseUint(cell(row, 0)),
		RefNo:             cell(row, 1),
		VerificationURL:   cell(row, 2),
		CertificateType:   models.CertificateType(cell(row, 3)),
		HolderName:        cell(row, 4),
		Course:            cell(row, 5),
		Batch:             cell(row, 6),
		StartDate:         parseOptTime(cell(row, 7)),
		EndDate:           parseOptTime(cell(row, 8)),
		GPA:               parseOptFloat(cell(row, 9)),
		IssueDate:         parseTime(cell(row, 10)),
		TemplateFile:      cell(row, 11),
		PDFPath:           cell(row, 12),
		ImagePath:         cell(row, 13),
		IsActive:          isActive,
		VerificationCount: count,
		LastVerifiedAt:    parseOptTime(cell(row, 16)),
		UserID:            parseOptUint(cell(row, 17)),
		SubmissionID:      parseUint(cell(row, 18)),
		CreatedAt:         parseTime(cell(row, 19)),
	}
}

func parseVerificationLogRow(row []string) *models.VerificationLog {
	return &models.VerificationLog{
		ID:            parseUint(cell(row, 0)),
		CertificateID: parseOptUint(cell(row, 1)),
		RefNo:         cell(row, 2),
		IPAddress:     parseOptStr(cell(row, 3)),
		UserAgent:     parseOptStr(cell(row, 4)),
		Status:        models.VerificationStatus(cell(row, 5)),
		CreatedAt:     parseTime(cell(row, 6)),
	}
}

func loadWorkbookState(f *excelize.File) (*workbookState, error) {
	state := newWorkbookState()

	rows, err := f.GetRows(sheetSubmissions)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetSubmissions, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		s := parseSubmissionRow(row)
		state.submissions[s.ID] = s
		if s.ID >= state.nextSubmissionID {
			state.nextSubmissionID = s.ID + 1
		}
	}

	rows, err = f.GetRows(sheetCertificates)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetCertificates, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		c := parseCertificateRow(row)
		state.certificates[c.ID] = c
		state.certByRefNo[c.RefNo] = c.ID
		if c.ID >= state.nextCertificateID {
			state.nextCertificateID = c.ID + 1
		}
	}

	rows, err = f.GetRows(sheetVerificationLogs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetVerificationLogs, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		v := parseVerificationLogRow(row)
		state.logs = append(state.logs, v)
		if v.ID >= state.nextLogID {
			state.nextLogID = v.ID + 1
		}
	}

	return state, nil
}

// ===== SHEET REWRITE =====

// syncSubmissionRow writes one submission at its row position (id order is
// insertion order, so row = id + 1 with the header at row 1).
func (r *SheetsRepository) syncSubmissionRow(s *models.Submission) {
	row := submissionRow(s)
	r.file.SetSheetRow(sheetSubmissions, fmt.Sprintf("A%d", s.ID+1), &row)
}

func (r *SheetsRepository) syncCertificateRow(c *models.Certificate) {
	row := certificateRow(c)
	r.file.SetSheetRow(sheetCertificates, fmt.Sprintf("A%d", c.ID+1), &row)
}

func (r *SheetsRepository) syncVerificationLogRow(v *models.VerificationLog) {
	row := verificationLogRow(v)
	r.file.SetSheetRow(sheetVerificationLogs, fmt.Sprintf("A%d", v.ID+1), &row)
}
