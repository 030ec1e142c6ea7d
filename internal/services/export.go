package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/tnsecretariat/regadmin/internal/models"
)

func sphereNames(u *models.User) string {
	if len(u.Spheres) == 0 {
		return ""
	}
	names := make([]string, len(u.Spheres))
	for i, s := range u.Spheres {
		names[i] = s.Name
	}
	return strings.Join(names, "; ")
}

func yn(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var csvHeader = []string{
	"ID", "Title", "First Name", "Last Name", "Email", "Mobile",
	"Church", "Church Address", "Group", "Spheres",
	"Working/Student", "Mode of Payment", "Reference Number", "Age Range",
	"Reconciled", "Finance Checked", "Email Confirmed",
	"Attendance", "ID Issued", "Book Given",
}

// UsersCSV streams the given registrants as a spreadsheet-friendly roster.
// Callers preload Group and Spheres; rows render whatever was loaded.
func UsersCSV(w io.Writer, users []models.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range users {
		u := &users[i]
		group := ""
		if u.Group != nil {
			group = u.Group.Name
		}
		rec := []string{
			fmt.Sprint(u.ID), u.Title, u.FirstName, u.LastName, u.Email, u.MobileNumber,
			u.ChurchName, u.ChurchAddress, group, sphereNames(u),
			deref(u.WorkingOrStudent), deref(u.ModeOfPayment), u.ReferenceNumber, u.AgeRange,
			yn(u.Reconciled), yn(u.FinanceChecked), yn(u.EmailConfirmed),
			yn(u.Attendance), yn(u.IDIssued), yn(u.BookGiven),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// UsersPDF renders a landscape roster with the columns front-desk staff need
// on event day.
func UsersPDF(w io.Writer, title string, users []models.User) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s  |  %d registrant(s)",
		time.Now().Format("2006-01-02 15:04"), len(users)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	type col struct {
		head  string
		width float64
		value func(u *models.User) string
	}
	cols := []col{
		{"#", 10, func(u *models.User) string { return fmt.Sprint(u.ID) }},
		{"Name", 55, func(u *models.User) string { return u.FullName() }},
		{"Email", 55, func(u *models.User) string { return u.Email }},
		{"Mobile", 28, func(u *models.User) string { return u.MobileNumber }},
		{"Church", 50, func(u *models.User) string { return u.ChurchName }},
		{"Spheres", 47, sphereNames},
		{"Ref", 20, func(u *models.User) string { return u.ReferenceNumber }},
		{"Att", 12, func(u *models.User) string { return yn(u.Attendance) }},
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range cols {
			pdf.CellFormat(c.width, 7, c.head, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	for i := range users {
		u := &users[i]
		if pdf.GetY() > 185 {
			pdf.AddPage()
			header()
		}
		for _, c := range cols {
			pdf.CellFormat(c.width, 6, truncate(c.value(u), c.width), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

// truncate keeps cell text inside its column at the 8pt roster font. Cutting
// happens on rune boundaries so multibyte names stay valid UTF-8.
func truncate(s string, width float64) string {
	max := int(width / 1.6)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
