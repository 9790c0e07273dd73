package domain

import "time"

type Customer struct {
	ID          string    `json:"user_id"`
	Phone       string    `json:"phone"`
	Name        string    `json:"name"`
	LoginCount  int       `json:"login_count"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login"`
}

type Address struct {
	ID        string `json:"id"`
	UserPhone string `json:"user_phone"`
	DeliveryAddress
	CreatedAt time.Time `json:"created_at"`
}
