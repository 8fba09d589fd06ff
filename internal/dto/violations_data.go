// ViolationsData is a paginated response payload for the violation log.
package dto

type ViolationsData struct {
	Violations  []ViolationInfo `json:"violations"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"pageSize"`
}
