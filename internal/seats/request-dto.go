package seats

type SeatHoldRequest struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,seatkey"`
}

type SeatAvailabilityRequest struct {
	Seats []string `json:"seats" binding:"required,min=1,dive,seatkey"`
}
