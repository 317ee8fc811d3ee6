package model

import (
	"fmt"
	"slices"
)

// Record is everything we know about one contact: the name, an ordered list of phone numbers and
// an optional birthday. The name never changes after creation.
type Record struct {
	name     Name
	phones   []Phone
	birthday *Birthday
}

// NewRecord creates a record for the named contact with the given phone numbers, in this order.
// It fails on the first value that does not pass validation.
func NewRecord(name string, phones ...string) (*Record, error) {
	n, err := NewName(name)
	if err != nil {
		return nil, err
	}
	record := &Record{name: n, phones: make([]Phone, 0, len(phones))}
	for _, raw := range phones {
		if err := record.AddPhone(raw); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// Name returns the contact's name.
func (r *Record) Name() string {
	return r.name.String()
}

// Phones returns a copy of the phone numbers in insertion order.
func (r *Record) Phones() []Phone {
	return slices.Clone(r.phones)
}

// Birthday returns the birthday and true, or false if none has been set.
func (r *Record) Birthday() (Birthday, bool) {
	if r.birthday == nil {
		return Birthday{}, false
	}
	return *r.birthday, true
}

// AddPhone validates the number and appends it. Duplicates are allowed.
func (r *Record) AddPhone(raw string) error {
	phone, err := NewPhone(raw)
	if err != nil {
		return err
	}
	r.phones = append(r.phones, phone)
	return nil
}

// RemovePhone removes every phone equal to raw. Nothing happens if there is no such phone.
func (r *Record) RemovePhone(raw string) {
	r.phones = slices.DeleteFunc(r.phones, func(p Phone) bool {
		return p.value == raw
	})
}

// EditPhone replaces the first phone equal to oldPhone by newPhone. The new number is validated
// before the lookup, so an invalid new number is reported even if oldPhone does not exist.
func (r *Record) EditPhone(oldPhone, newPhone string) error {
	phone, err := NewPhone(newPhone)
	if err != nil {
		return err
	}
	i := r.indexOf(oldPhone)
	if i < 0 {
		return fmt.Errorf("phone '%s' %w for contact '%s'", oldPhone, ErrNotFound, r.name)
	}
	r.phones[i] = phone
	return nil
}

// FindPhone returns the first phone equal to raw.
func (r *Record) FindPhone(raw string) (Phone, bool) {
	i := r.indexOf(raw)
	if i < 0 {
		return Phone{}, false
	}
	return r.phones[i], true
}

// SetBirthday validates the date and replaces any birthday set before.
func (r *Record) SetBirthday(raw string) error {
	b, err := NewBirthday(raw)
	if err != nil {
		return err
	}
	r.birthday = &b
	return nil
}

func (r *Record) indexOf(raw string) int {
	return slices.IndexFunc(r.phones, func(p Phone) bool {
		return p.value == raw
	})
}
