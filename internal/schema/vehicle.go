package schema

import "strconv"

type Vehicle struct {
	Id    string  `json:"id"`
	Make  string  `json:"make"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
}

// PriceLabel is the decimal form of the daily price, e.g. "40" or "42.5".
func (v Vehicle) PriceLabel() string {
	return strconv.FormatFloat(v.Price, 'f', -1, 64)
}

// DisplayName is the text that replaces the search query once the vehicle is picked.
func (v Vehicle) DisplayName() string {
	return v.Make + " " + v.Model
}

type User struct {
	Id       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type Booking struct {
	Id              string  `json:"id"`
	Status          string  `json:"status"`
	TotalPrice      float64 `json:"totalPrice"`
	Car             Vehicle `json:"car"`
	User            User    `json:"user"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	PickupLocation  string  `json:"pickupLocation"`
	DropoffLocation string  `json:"dropoffLocation"`
}
