package model

import "time"

// Event represents a student event published by an organizer.  Events
// own their ticket types; deleting an event cascades to its ticket
// types in the database.  Address geocoding and image storage are
// handled by external services and are not modelled here.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who created and manages the event.
//  Name        – display name of the event.
//  Description – free-form description text.
//  Address     – street address of the venue.
//  StartsAt    – when the event takes place (UTC).
//  CategoryID  – optional reference to a category.
//  CityID      – optional reference to a city.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    // events.id
	OrganizerID uint64    // events.organizer_id
	Name        string    // events.name
	Description string    // events.description
	Address     string    // events.address
	StartsAt    time.Time // events.starts_at
	CategoryID  *uint64   // events.category_id (nullable)
	CityID      *uint64   // events.city_id (nullable)
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// Category is a row in the `categories` table used to classify
// events for browsing and filtering.
type Category struct {
	ID   uint64 // categories.id
	Name string // categories.name
}

// City is a row in the `cities` table.  Events reference a city so
// users can filter listings by location.
type City struct {
	ID   uint64 // cities.id
	Name string // cities.name
}
