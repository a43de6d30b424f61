package profile

// Theme is the colour palette the client renders with.
type Theme struct {
	Name         string `json:"name"`
	Background   string `json:"background"`
	Card         string `json:"card"`
	CardAlt      string `json:"card_alt"`
	Text         string `json:"text"`
	TextAlt      string `json:"text_alt"`
	Border       string `json:"border"`
	InputBg      string `json:"input_bg"`
	Placeholder  string `json:"placeholder"`
	IconBg       string `json:"icon_bg"`
	Button       string `json:"button"`
	ButtonText   string `json:"button_text"`
	SectionTitle string `json:"section_title"`
	SeeLaterBg   string `json:"see_later_bg"`
}

var lightTheme = Theme{
	Name:         "light",
	Background:   "#f8fafc",
	Card:         "#fff",
	CardAlt:      "#e0e7ef",
	Text:         "#2a4d69",
	TextAlt:      "#22343c",
	Border:       "#2a4d69",
	InputBg:      "#f8fafc",
	Placeholder:  "#888",
	IconBg:       "#2a4d69",
	Button:       "#2a4d69",
	ButtonText:   "#fff",
	SectionTitle: "#2a4d69",
	SeeLaterBg:   "#e0e7ef",
}

var darkTheme = Theme{
	Name:         "dark",
	Background:   "#181a20",
	Card:         "#23262f",
	CardAlt:      "#23262f",
	Text:         "#fff",
	TextAlt:      "#e0e7ef",
	Border:       "#fff",
	InputBg:      "#23262f",
	Placeholder:  "#aaa",
	IconBg:       "#fff",
	Button:       "#2a4d69",
	ButtonText:   "#fff",
	SectionTitle: "#fff",
	SeeLaterBg:   "#23262f",
}

// ThemeFor returns the palette for the dark mode flag.
func ThemeFor(darkMode bool) Theme {
	if darkMode {
		return darkTheme
	}
	return lightTheme
}
