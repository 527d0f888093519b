package pii

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestResponse_DecodeWithMissingFields(t *testing.T) {
	body := `{"status":"success","count":2,"rows":[
		{"file_name":"a.pdf","page_number":1,"occurrence":1,"phone":"123"},
		{"file_name":"b.pdf","page_number":2,"occurrence":1,"email":"x@y.com"}
	]}`

	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if resp.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", resp.Len())
	}

	want := []string{"a.pdf", "", "1", "1", "123", "", "", "", "", "", "", ""}
	if got := resp.Rows[0].Cells(); !reflect.DeepEqual(got, want) {
		t.Errorf("row 0 Cells() = %q, want %q", got, want)
	}

	want = []string{"b.pdf", "", "2", "1", "", "x@y.com", "", "", "", "", "", ""}
	if got := resp.Rows[1].Cells(); !reflect.DeepEqual(got, want) {
		t.Errorf("row 1 Cells() = %q, want %q", got, want)
	}
}

func TestResponse_MissingRows(t *testing.T) {
	var resp Response
	if err := json.Unmarshal([]byte(`{"status":"error","message":"No valid files found"}`), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Len() != 0 {
		t.Errorf("Len() = %d, want 0", resp.Len())
	}

	var nilResp *Response
	if nilResp.Len() != 0 {
		t.Errorf("nil Len() = %d, want 0", nilResp.Len())
	}
}

func TestColumns_Fixed(t *testing.T) {
	want := []string{
		"File Name", "User Name", "Page", "Occ", "Phone", "Email",
		"Aadhaar", "PAN", "Address", "DL", "Voter ID", "DOB",
	}
	if got := Headers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Headers() = %q, want %q", got, want)
	}
}

func TestRow_DecodeLoose(t *testing.T) {
	body := `[
		{"file_name":"a.pdf","page_number":"3","occurrence":2,"phone":9876543210,"dl":null,"extra":"x"},
		"not an object",
		{"file_name":"c.pdf","address":{"city":"Pune"}}
	]`

	var resp Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Len() != 3 || resp.Count != 3 {
		t.Fatalf("Len() = %d, Count = %d, want 3", resp.Len(), resp.Count)
	}

	want := Row{FileName: "a.pdf", PageNumber: "3", Occurrence: "2", Phone: "9876543210"}
	if resp.Rows[0] != want {
		t.Errorf("row 0 = %+v, want %+v", resp.Rows[0], want)
	}
	if resp.Rows[1] != (Row{}) {
		t.Errorf("row 1 = %+v, want empty", resp.Rows[1])
	}
	if resp.Rows[2].Address != `{"city":"Pune"}` {
		t.Errorf("row 2 Address = %q", resp.Rows[2].Address)
	}
}

func TestRow_MarshalJSON(t *testing.T) {
	r := Row{FileName: "a.pdf", PageNumber: "3", Occurrence: "p2", PAN: "ABCDE1234F"}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"file_name":"a.pdf","user_name":"","page_number":3,"occurrence":"p2",` +
		`"phone":"","email":"","aadhaar":"","pan":"ABCDE1234F","address":"","dl":"",` +
		`"voter_id":"","dob":""}`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	var back Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != r {
		t.Errorf("round trip = %+v, want %+v", back, r)
	}
}

func TestFileNames(t *testing.T) {
	got := FileNames([]File{{Name: "a.pdf"}, {Name: "b.png"}})
	if got != "a.pdf, b.png" {
		t.Errorf("FileNames() = %q", got)
	}
}
