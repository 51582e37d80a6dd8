package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/qtbuild/internal/models"
)

// MarkdownParser parses task files written as Markdown. Optional YAML
// frontmatter carries name, working_directory and environment; every level-2
// heading starts a task and "Key: value" list items set its fields. Other
// content is ignored:
//
//	## Task: compile
//	- Build: BUILD
//	- Target: `all,install`
type MarkdownParser struct {
	markdown goldmark.Markdown
}

// NewMarkdownParser creates a new Markdown parser instance
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

type markdownFrontmatter struct {
	Name             string            `yaml:"name"`
	WorkingDirectory string            `yaml:"working_directory"`
	Environment      map[string]string `yaml:"environment"`
}

// Parse reads a Markdown task file.
func (p *MarkdownParser) Parse(r io.Reader) (*models.TaskFile, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	tf := &models.TaskFile{}
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var fm markdownFrontmatter
		if err := yaml.Unmarshal(frontmatter, &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		tf.Name = fm.Name
		tf.WorkingDirectory = fm.WorkingDirectory
		tf.Environment = fm.Environment
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))
	tasks, err := extractTasks(doc, content)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks defined")
	}
	tf.Tasks = tasks
	return tf, nil
}

func extractTasks(doc ast.Node, source []byte) ([]models.TaskConfig, error) {
	var (
		tasks   []models.TaskConfig
		current *models.TaskConfig
	)
	flush := func() {
		if current != nil {
			tasks = append(tasks, current.WithDefaults())
			current = nil
		}
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level != 2 {
				return ast.WalkSkipChildren, nil
			}
			flush()
			name := strings.TrimSpace(extractText(node, source))
			if rest, ok := cutPrefixFold(name, "task:"); ok {
				name = strings.TrimSpace(rest)
			}
			current = &models.TaskConfig{Name: name}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if current == nil {
				return ast.WalkSkipChildren, nil
			}
			// Items that are not "Key: value" pairs for a known field are prose.
			if key, value, ok := strings.Cut(extractText(node, source), ":"); ok {
				setField(current, key, value)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	flush()
	return tasks, nil
}

// extractText concatenates the text of every descendant of n, including code
// spans. Soft line breaks become spaces.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractFrontmatter splits leading "---" delimited YAML from the body.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			return bytes.Join(lines[i+1:], []byte("\n")), bytes.Join(lines[1:i], []byte("\n"))
		}
	}
	return content, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
