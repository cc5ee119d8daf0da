package domain

// BrandProfile parameterizes the planner for one branded product line.
type BrandProfile struct {
	Key            string `json:"key"`
	BrandName      string `json:"brand_name"`
	DefaultStyle   Style  `json:"default_style"`
	DefaultScenes  int    `json:"default_scenes"`
	PromptTemplate string `json:"-"`
}
