package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	chatSystem     = "You are a helpful AI assistant for portfolio generation."
	extractSystem  = "You are a data extraction expert. Return only JSON."
	designerSystem = "You are an expert web designer and developer. Create stunning portfolios."
	legacySystem   = "You are a professional portfolio website generator."

	defaultDesignPrompt = "Modern and elegant design"
)

// PortfolioData is the structured input of the generate-portfolio endpoint.
type PortfolioData struct {
	Name            string    `json:"name"`
	Profession      string    `json:"profession"`
	Bio             string    `json:"bio"`
	Skills          []string  `json:"skills"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	GitHub          string    `json:"github"`
	LinkedIn        string    `json:"linkedin"`
	Twitter         string    `json:"twitter"`
	Instagram       string    `json:"instagram"`
	ProfileImageURL string    `json:"profileImageUrl"`
	Projects        []Project `json:"projects"`
	AdditionalLinks []Link    `json:"additionalLinks"`
	DesignPrompt    string    `json:"designPrompt"`
	Provider        string    `json:"provider"`
}

// Project is passed to the prompt as sent; only imageUrl gets a default.
type Project map[string]any

func (p Project) name() string {
	s, _ := p["name"].(string)
	return s
}

type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var profileImages = map[string]string{
	"مطور":      "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=400&h=400&fit=crop&crop=face",
	"مصمم":      "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=400&h=400&fit=crop&crop=face",
	"مهندس":     "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=400&h=400&fit=crop&crop=face",
	"مدير":      "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=400&h=400&fit=crop&crop=face",
	"developer": "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=400&h=400&fit=crop&crop=face",
	"designer":  "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=400&h=400&fit=crop&crop=face",
	"engineer":  "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=400&h=400&fit=crop&crop=face",
	"manager":   "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=400&h=400&fit=crop&crop=face",
}

const fallbackProfileImage = "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=400&h=400&fit=crop&crop=face"

// projectImages is ordered so keyword matching is deterministic.
var projectImages = []struct{ keyword, url string }{
	{"موقع", "https://images.unsplash.com/photo-1460925895917-afdab827c52f?w=600&h=400&fit=crop"},
	{"تطبيق", "https://images.unsplash.com/photo-1512941937669-90a1b58e7e9c?w=600&h=400&fit=crop"},
	{"نظام", "https://images.unsplash.com/photo-1551288049-bebda4e38f71?w=600&h=400&fit=crop"},
	{"منصة", "https://images.unsplash.com/photo-1551650975-87deedd944c3?w=600&h=400&fit=crop"},
	{"website", "https://images.unsplash.com/photo-1460925895917-afdab827c52f?w=600&h=400&fit=crop"},
	{"app", "https://images.unsplash.com/photo-1512941937669-90a1b58e7e9c?w=600&h=400&fit=crop"},
	{"system", "https://images.unsplash.com/photo-1551288049-bebda4e38f71?w=600&h=400&fit=crop"},
	{"platform", "https://images.unsplash.com/photo-1551650975-87deedd944c3?w=600&h=400&fit=crop"},
}

const fallbackProjectImage = "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=600&h=400&fit=crop"

// DefaultProfileImage picks a stock portrait by exact profession.
func DefaultProfileImage(profession string) string {
	if url, ok := profileImages[profession]; ok {
		return url
	}
	return fallbackProfileImage
}

// DefaultProjectImage picks a stock image by the first keyword contained in the project name.
func DefaultProjectImage(name string) string {
	lower := strings.ToLower(name)
	for _, p := range projectImages {
		if strings.Contains(lower, p.keyword) {
			return p.url
		}
	}
	return fallbackProjectImage
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func portfolioPrompt(d PortfolioData) string {
	profileImage := d.ProfileImageURL
	if profileImage == "" {
		profileImage = DefaultProfileImage(d.Profession)
	}
	projects := make([]Project, len(d.Projects))
	for i, p := range d.Projects {
		out := make(Project, len(p)+1)
		for k, v := range p {
			out[k] = v
		}
		if img, _ := out["imageUrl"].(string); img == "" {
			out["imageUrl"] = DefaultProjectImage(p.name())
		}
		projects[i] = out
	}
	links := d.AdditionalLinks
	if links == nil {
		links = []Link{}
	}
	projectsJSON := plainJSON(projects)
	linksJSON := plainJSON(links)

	skills := "Not specified"
	if len(d.Skills) > 0 {
		skills = strings.Join(d.Skills, ", ")
	}
	design := d.DesignPrompt
	if design == "" {
		design = defaultDesignPrompt
	}

	var b strings.Builder
	b.WriteString("Create a complete, single-file HTML portfolio website using the following data.\n")
	b.WriteString("Include all CSS (in <style> tags) and JavaScript (in <script> tags) internally.\n\n")
	b.WriteString("Personal Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orUnspecified(d.Name))
	fmt.Fprintf(&b, "- Profession: %s\n", orUnspecified(d.Profession))
	fmt.Fprintf(&b, "- Bio: %s\n", orUnspecified(d.Bio))
	fmt.Fprintf(&b, "- Skills: %s\n", skills)
	fmt.Fprintf(&b, "- Email: %s\n", orUnspecified(d.Email))
	fmt.Fprintf(&b, "- Phone: %s\n", orUnspecified(d.Phone))
	fmt.Fprintf(&b, "- GitHub: %s\n", orUnspecified(d.GitHub))
	fmt.Fprintf(&b, "- LinkedIn: %s\n", orUnspecified(d.LinkedIn))
	fmt.Fprintf(&b, "- Twitter: %s\n", orUnspecified(d.Twitter))
	fmt.Fprintf(&b, "- Instagram: %s\n", orUnspecified(d.Instagram))
	fmt.Fprintf(&b, "- Profile Image: %s\n", profileImage)
	fmt.Fprintf(&b, "- Projects: %s\n", projectsJSON)
	fmt.Fprintf(&b, "- Additional Links: %s\n\n", linksJSON)
	fmt.Fprintf(&b, "Design Requirements:\n%s\n\n", design)
	b.WriteString("Focus on a high-end, premium aesthetic with smooth animations, modern typography (Inter/Outfit), and a responsive layout.\n")
	b.WriteString("Return ONLY the complete HTML code starting with <!DOCTYPE html>.")
	return b.String()
}

// plainJSON marshals v without HTML escaping so URLs reach the prompt intact.
func plainJSON(v any) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "[]"
	}
	return strings.TrimSpace(b.String())
}

func extractPrompt(text string) string {
	return `Extract the following fields from the text below and return them as JSON.

Text: ` + text + `

Fields:
- name: full name
- profession: profession or specialty
- bio: short personal bio
- skills: list of skills (array)
- projects: list of projects with name, description and link (array)
- github: GitHub URL
- linkedin: LinkedIn URL
- twitter: Twitter URL
- instagram: Instagram URL
- email: email address
- phone: phone number
- additionalLinks: extra links (array of objects with name and url)

Return only JSON, without any explanation or comments.`
}

func enhancePrompt(html, design string) string {
	if design == "" {
		design = "General design improvement"
	}
	return `Analyse and improve the following portfolio website code.

Current code:
` + html + `

Design requirements:
` + design + `

Improve visual design and colours, add gentle hover effects and simple smooth animations,
improve layout, whitespace, typography, contrast and responsiveness, and add elegant
but uncomplicated CSS effects and gradients.

Return only the complete improved HTML code without any explanation or comments.`
}

func legacyPrompt(details string) string {
	if strings.TrimSpace(details) == "" {
		details = "Web developer with 5 years of experience"
	}
	return `You are a professional portfolio website generator. Build a complete, responsive
portfolio website using HTML, CSS and JavaScript.

Details:
` + details + `

Sections: hero (photo, name, title, short bio), about, skills with icons, projects with
images and links, contact with social links. Use CSS Grid and Flexbox, light hover
effects and animations, Google Fonts, a blue/purple gradient with gold accents, and make
sure it works on every device.

Return only the full HTML with embedded CSS and JavaScript, without any explanation.`
}

const editSystem = `You are an expert web developer.
Your ONLY responsibility is to apply precise modifications to existing HTML/CSS/JS code exactly as the user requests, nothing more.

1. Document structure integrity
You MUST NOT add or duplicate <!DOCTYPE html>, <html>, <head> or <body>, embed a new HTML
document inside the existing one, or regenerate the layout unless explicitly instructed.
There must remain exactly ONE html document with exactly ONE <html>, <head> and <body>.

2. Surgical editing
Read the entire code first. Modify only the part the user asks for and keep all other code
unchanged. Do not introduce new classes, IDs or elements, or change JavaScript logic,
unless explicitly asked.

3. Full file output
Output the entire file from <!DOCTYPE html> to </html> with all head, style, body and
script blocks. No placeholders, no ellipses, no markdown, no explanations.

4. Consistency
Preserve the responsive design, keep valid HTML5, and do not break JavaScript behaviour.

5. Output format
Start exactly with <!DOCTYPE html> and end exactly with </html>. Output only the edited file.`

func editPrompt(html, instruction string) string {
	return `Here is the COMPLETE current HTML code:

` + html + `

---

User's modification request: ` + instruction + `

---

Instructions:
1. Read the ENTIRE code above carefully
2. Find the specific part that needs to be changed based on the user's request
3. Make ONLY that change
4. Return the COMPLETE modified HTML (all of it, from <!DOCTYPE to </html>)
5. Ensure there is NO duplication of the HTML structure`
}
