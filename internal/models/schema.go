package models

// All returns every table model in creation order.
func All() []interface{} {
	return []interface{}{
		(*User)(nil),
		(*Friendship)(nil),
		(*Structure)(nil),
		(*StructureMember)(nil),
		(*EventCategory)(nil),
		(*Event)(nil),
		(*EventCategoryLink)(nil),
		(*EventTag)(nil),
		(*GalleryImage)(nil),
		(*Ticket)(nil),
	}
}
