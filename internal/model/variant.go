package model

// Variant is the typed view of a block. The set is closed: ProjectCard,
// Image, Paragraph and Other.
type Variant interface {
	variant()
}

// ProjectCard is a card block with its flat property bag.
type ProjectCard struct {
	Props CardProps
}

// Image is an image block.
type Image struct {
	URL     string
	Caption string
}

// Paragraph is a plain paragraph block.
type Paragraph struct {
	Text string
}

// Other is any block type the backend does not interpret.
type Other struct {
	Type string
}

func (ProjectCard) variant() {}
func (Image) variant()       {}
func (Paragraph) variant()   {}
func (Other) variant()       {}

// Variant classifies the block by its type field.
func (b Block) Variant() Variant {
	switch b.Type {
	case TypeProjectCard:
		return ProjectCard{Props: CardPropsFrom(b)}
	case TypeImage:
		return Image{URL: b.Prop("url"), Caption: b.Prop("caption")}
	case TypeParagraph:
		return Paragraph{Text: b.PlainText()}
	default:
		return Other{Type: b.Type}
	}
}
