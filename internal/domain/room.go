package domain

// RoomType is the gender designation a room's beds are sold under.
type RoomType string

const (
	RoomTypeMixed  RoomType = "mixed"
	RoomTypeFemale RoomType = "female"
)

// Room is an immutable catalog entry for one physical dorm.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Type     RoomType
	// Flexible marks the one room whose gender designation can change
	// based on upcoming bookings.
	Flexible bool
}

// Catalog is the fixed set of physical rooms.
type Catalog []Room

func (c Catalog) Get(roomID string) (Room, bool) {
	for _, room := range c {
		if room.ID == roomID {
			return room, true
		}
	}
	return Room{}, false
}

func (c Catalog) TotalCapacity() int {
	total := 0
	for _, room := range c {
		total += room.Capacity
	}
	return total
}

// FlexibleRoom returns the convertible room, if the catalog has one.
func (c Catalog) FlexibleRoom() (Room, bool) {
	for _, room := range c {
		if room.Flexible {
			return room, true
		}
	}
	return Room{}, false
}

const (
	RoomMixto12A  = "room_mixto_12a"
	RoomMixto12B  = "room_mixto_12b"
	RoomMixto7    = "room_mixto_7"
	RoomFlexible7 = "room_flexible_7"
)

// DefaultCatalog returns Lapa Casa Hostel's four rooms. The flexible room
// is female by default and may be relabeled mixed by the conversion policy.
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: RoomMixto12A, Name: "Mixto 12A", Capacity: 12, Type: RoomTypeMixed},
		{ID: RoomMixto12B, Name: "Mixto 12B", Capacity: 12, Type: RoomTypeMixed},
		{ID: RoomMixto7, Name: "Mixto 7", Capacity: 7, Type: RoomTypeMixed},
		{ID: RoomFlexible7, Name: "Flexible 7", Capacity: 7, Type: RoomTypeFemale, Flexible: true},
	}
}
