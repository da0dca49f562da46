package catalog

// Category is one entry in the static issue taxonomy. Names carry the two
// storefront locales; Icon and Color are hints for clients.
type Category struct {
	ID     string
	NameEN string
	NameAR string
	Icon   string
	Color  string
}

const FallbackCategoryID = "other"

var categories = []Category{
	{ID: "screen", NameEN: "Screen & Display", NameAR: "الشاشة والعرض", Icon: "screen", Color: "#4F8EF7"},
	{ID: "battery", NameEN: "Battery & Power", NameAR: "البطارية والطاقة", Icon: "battery", Color: "#34C759"},
	{ID: "charging", NameEN: "Charging & Ports", NameAR: "الشحن والمنافذ", Icon: "plug", Color: "#FF9F0A"},
	{ID: "camera", NameEN: "Camera", NameAR: "الكاميرا", Icon: "camera", Color: "#AF52DE"},
	{ID: "audio", NameEN: "Speaker & Audio", NameAR: "السماعة والصوت", Icon: "speaker", Color: "#FF375F"},
	{ID: "water_damage", NameEN: "Water Damage", NameAR: "أضرار المياه", Icon: "droplet", Color: "#32ADE6"},
	{ID: "software", NameEN: "Software & OS", NameAR: "البرمجيات والنظام", Icon: "cpu", Color: "#8E8E93"},
	{ID: "network", NameEN: "Network & Connectivity", NameAR: "الشبكة والاتصال", Icon: "wifi", Color: "#30B0C7"},
	{ID: FallbackCategoryID, NameEN: "Other", NameAR: "أخرى", Icon: "wrench", Color: "#636366"},
}

// issueToCategory maps fine-grained issue ids to their category. Issues the
// map does not know fall back to "other".
var issueToCategory = map[string]string{
	"cracked_screen":     "screen",
	"dead_pixels":        "screen",
	"touch_unresponsive": "screen",
	"backlight":          "screen",
	"battery_drain":      "battery",
	"battery_swollen":    "battery",
	"no_power":           "battery",
	"slow_charging":      "charging",
	"charging_port":      "charging",
	"cable_damage":       "charging",
	"camera_blur":        "camera",
	"camera_black":       "camera",
	"front_camera":       "camera",
	"no_sound":           "audio",
	"mic_broken":         "audio",
	"headphone_jack":     "audio",
	"water_spill":        "water_damage",
	"water_submerged":    "water_damage",
	"os_crash":           "software",
	"boot_loop":          "software",
	"virus_malware":      "software",
	"data_recovery":      "software",
	"wifi_issue":         "network",
	"bluetooth_issue":    "network",
	"sim_not_detected":   "network",
}

var categoryByID = func() map[string]Category {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID
}()

// Categories returns the full taxonomy in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByID resolves a category id. Unknown ids resolve to the fallback.
func CategoryByID(id string) Category {
	if c, ok := categoryByID[id]; ok {
		return c
	}
	return categoryByID[FallbackCategoryID]
}

// IsValidCategoryID reports whether id names a real category.
func IsValidCategoryID(id string) bool {
	_, ok := categoryByID[id]
	return ok
}

// CategoryForIssue maps an issue id to its category. Unmapped issue ids
// resolve to the fallback category and never error.
func CategoryForIssue(issueID string) Category {
	if categoryID, ok := issueToCategory[issueID]; ok {
		return categoryByID[categoryID]
	}
	return categoryByID[FallbackCategoryID]
}
