package models

// ProductPage holds the garment images found on a shop's product page
type ProductPage struct {
	URL    string   `json:"url"`
	Title  string   `json:"title"`
	Images []string `json:"image_paths"` // Largest image first
}
