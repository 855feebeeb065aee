package model

// Tourist is the data structure for a person registered with the service.
// All fields with the exception of the Id field are optional; a field that was not submitted is nil.
type Tourist struct {
	Id        int64   `json:"id"                  db:"id"`
	Name      *string `json:"name,omitempty"      db:"name"`
	Contact   *string `json:"contact,omitempty"   db:"contact"`
	Itinerary *string `json:"itinerary,omitempty" db:"itinerary"`
}
