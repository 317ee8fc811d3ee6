// Package model contains the JSON representation of contacts as exchanged over HTTP.
package model

// Contact is the data structure for a person that we know.
// The birthday is optional and uses the DD.MM.YYYY format.
type Contact struct {
	Name     string   `json:"name"`
	Phones   []string `json:"phones"`
	Birthday *string  `json:"birthday,omitempty"`
}

// Congratulation tells on which day (YYYY.MM.DD) a contact should be congratulated.
type Congratulation struct {
	Name               string `json:"name"`
	CongratulationDate string `json:"congratulation_date"`
}

// PhoneRequest is the body of requests that add or change a phone number.
type PhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// BirthdayRequest is the body of requests that set a birthday.
type BirthdayRequest struct {
	Birthday string `json:"birthday" binding:"required"`
}
