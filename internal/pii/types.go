package pii

import "strings"

// File is one user-chosen document held in memory until submission.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file size in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Row is a single extraction result record as returned by the service.
// Every value is kept as the text the service sent; absent or null fields
// are empty. Page and occurrence are text too so that an unexpected value
// is shown rather than dropped.
type Row struct {
	FileName   string
	UserName   string
	PageNumber string
	Occurrence string
	Phone      string
	Email      string
	Aadhaar    string
	PAN        string
	Address    string
	DL         string
	VoterID    string
	DOB        string
}

// Response is the extraction service payload. Rows are kept in the order
// the service returned them.
type Response struct {
	Status string `json:"status,omitempty"`
	Count  int    `json:"count"`
	Rows   []Row  `json:"rows"`
}

// Len returns the number of rows, tolerating a nil response.
func (r *Response) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Align is the horizontal alignment of a column in rendered output.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Column describes one fixed column of the results table and of every export.
type Column struct {
	Key     string // JSON key of the field
	Label   string // Header shown to the user
	Align   Align
	Wide    bool // free-text column that gets extra room in the table
	Numeric bool // counter column; exported as a number when present
	Value   func(Row) string
	set     func(*Row, string)
}

// Columns is the fixed column set, in display order.
var Columns = []Column{
	{Key: "file_name", Label: "File Name",
		Value: func(r Row) string { return r.FileName }, set: func(r *Row, v string) { r.FileName = v }},
	{Key: "user_name", Label: "User Name",
		Value: func(r Row) string { return r.UserName }, set: func(r *Row, v string) { r.UserName = v }},
	{Key: "page_number", Label: "Page", Align: AlignCenter, Numeric: true,
		Value: func(r Row) string { return r.PageNumber }, set: func(r *Row, v string) { r.PageNumber = v }},
	{Key: "occurrence", Label: "Occ", Align: AlignCenter, Numeric: true,
		Value: func(r Row) string { return r.Occurrence }, set: func(r *Row, v string) { r.Occurrence = v }},
	{Key: "phone", Label: "Phone",
		Value: func(r Row) string { return r.Phone }, set: func(r *Row, v string) { r.Phone = v }},
	{Key: "email", Label: "Email",
		Value: func(r Row) string { return r.Email }, set: func(r *Row, v string) { r.Email = v }},
	{Key: "aadhaar", Label: "Aadhaar",
		Value: func(r Row) string { return r.Aadhaar }, set: func(r *Row, v string) { r.Aadhaar = v }},
	{Key: "pan", Label: "PAN",
		Value: func(r Row) string { return r.PAN }, set: func(r *Row, v string) { r.PAN = v }},
	{Key: "address", Label: "Address", Wide: true,
		Value: func(r Row) string { return r.Address }, set: func(r *Row, v string) { r.Address = v }},
	{Key: "dl", Label: "DL",
		Value: func(r Row) string { return r.DL }, set: func(r *Row, v string) { r.DL = v }},
	{Key: "voter_id", Label: "Voter ID",
		Value: func(r Row) string { return r.VoterID }, set: func(r *Row, v string) { r.VoterID = v }},
	{Key: "dob", Label: "DOB",
		Value: func(r Row) string { return r.DOB }, set: func(r *Row, v string) { r.DOB = v }},
}

// Headers returns the column labels in display order.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Label
	}
	return out
}

// Cells returns the row's values in column order. Absent fields are blank.
func (r Row) Cells() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Value(r)
	}
	return out
}

// FileNames returns the names of the given files, comma separated.
func FileNames(files []File) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}
