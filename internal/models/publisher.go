package models

// Publisher издатель, к которому статьи привязаны по имени.
type Publisher struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}
