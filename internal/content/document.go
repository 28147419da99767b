// Package content defines the portfolio ContentDocument and the operations that
// build, merge, validate and serialize it.
package content

// Section names, in display order.
const (
	SectionHero           = "hero"
	SectionAbout          = "about"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionContact        = "contact"
	SectionSEO            = "seo"
	SectionSettings       = "settings"
	SectionLanguages      = "languages"
)

// Certification statuses
const (
	StatusObtained   = "obtained"
	StatusInProgress = "in-progress"
)

// Document is the full site content, one field per section.
type Document struct {
	Hero           Hero            `json:"hero"`
	About          About           `json:"about"`
	Skills         []SkillCategory `json:"skills" validate:"dive"`
	Projects       []Project       `json:"projects" validate:"dive"`
	Certifications []Certification `json:"certifications" validate:"dive"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Contact        Contact         `json:"contact"`
	SEO            SEO             `json:"seo"`
	Settings       Settings        `json:"settings"`
	Languages      []Language      `json:"languages"`
}

// Hero is the landing banner
type Hero struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Location string `json:"location"`
	CTA1     string `json:"cta1"`
	CTA2     string `json:"cta2"`
}

// About holds the biography, profile photo (as a data URL) and headline stats.
type About struct {
	Bio        string   `json:"bio"`
	Photo      string   `json:"photo"`
	Stats      []Stat   `json:"stats"`
	SoftSkills []string `json:"softSkills"`
}

// Stat is a numeric highlight such as "5+ years".
type Stat struct {
	Value  Number `json:"value"`
	Label  string `json:"label"`
	Suffix string `json:"suffix,omitempty"`
}

// SkillCategory groups skills under an icon.
type SkillCategory struct {
	Category string      `json:"category"`
	Icon     string      `json:"icon"`
	Items    []SkillItem `json:"items" validate:"dive"`
}

// SkillItem is one skill with a proficiency percentage.
type SkillItem struct {
	Name  string `json:"name"`
	Level Number `json:"level" validate:"gte=0,lte=100"`
}

// Project is a portfolio project. ID is unique within a document.
type Project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Client       string   `json:"client"`
	Period       string   `json:"period"`
	Role         string   `json:"role"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Tags         []string `json:"tags"`
	Featured     bool     `json:"featured"`
}

// Certification is a credential with its verification link.
type Certification struct {
	Name     string `json:"name"`
	Org      string `json:"org"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Status   string `json:"status" validate:"omitempty,oneof=obtained in-progress"`
	Link     string `json:"link"`
}

// Experience is a past position with its missions in display order.
type Experience struct {
	Company     string   `json:"company"`
	Role        string   `json:"role"`
	Period      string   `json:"period"`
	Description string   `json:"description"`
	Missions    []string `json:"missions"`
}

// Education is a degree entry
type Education struct {
	Degree   string `json:"degree"`
	School   string `json:"school"`
	Period   string `json:"period"`
	Location string `json:"location"`
}

// Contact holds direct contact details and social links.
type Contact struct {
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Socials []Social `json:"socials"`
}

// Social is a link to an external profile
type Social struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
}

// SEO carries page metadata for the site head.
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// Settings are site-wide switches. AdminPassword is either a bcrypt hash or a
// legacy plaintext value.
type Settings struct {
	AccentColor       string `json:"accentColor" validate:"omitempty,hexcolor"`
	AdminPassword     string `json:"adminPassword"`
	AnimationsEnabled bool   `json:"animationsEnabled"`
}

// Language is a spoken language with a free-form level label.
type Language struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// SectionNames returns every section name in display order.
func SectionNames() []string {
	return []string{
		SectionHero,
		SectionAbout,
		SectionSkills,
		SectionProjects,
		SectionCertifications,
		SectionExperience,
		SectionEducation,
		SectionContact,
		SectionSEO,
		SectionSettings,
		SectionLanguages,
	}
}

// IsSection reports whether name is a known section.
func IsSection(name string) bool {
	for _, s := range SectionNames() {
		if s == name {
			return true
		}
	}
	return false
}

// normalize replaces nil slices with empty ones so readers never see null lists.
func (d *Document) normalize() {
	if d.About.Stats == nil {
		d.About.Stats = []Stat{}
	}
	if d.About.SoftSkills == nil {
		d.About.SoftSkills = []string{}
	}
	if d.Skills == nil {
		d.Skills = []SkillCategory{}
	}
	for i := range d.Skills {
		if d.Skills[i].Items == nil {
			d.Skills[i].Items = []SkillItem{}
		}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	for i := range d.Projects {
		if d.Projects[i].Technologies == nil {
			d.Projects[i].Technologies = []string{}
		}
		if d.Projects[i].Tags == nil {
			d.Projects[i].Tags = []string{}
		}
	}
	if d.Certifications == nil {
		d.Certifications = []Certification{}
	}
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	for i := range d.Experience {
		if d.Experience[i].Missions == nil {
			d.Experience[i].Missions = []string{}
		}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Contact.Socials == nil {
		d.Contact.Socials = []Social{}
	}
	if d.Languages == nil {
		d.Languages = []Language{}
	}
}
