/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the project configuration stored in Config.toml at the
// root of every makinilya project.

// Default project layout.
const (
	DefaultDraftDirectory = "draft"
	DefaultOutputPath     = "out/manuscript.docx"
	DefaultContextPath    = "Context.toml"
)

// Config is the decoded Config.toml.
type Config struct {
	Project ProjectConfig       `toml:"project" json:"project"`
	Story   StoryConfig         `toml:"story" json:"story"`
	Author  *ContactInformation `toml:"author,omitempty" json:"author,omitempty"`
	Agent   *ContactInformation `toml:"agent,omitempty" json:"agent,omitempty"`
}

// ProjectConfig locates the project's inputs and output, relative to its root.
type ProjectConfig struct {
	DraftDirectory string `toml:"draft_directory" json:"draft_directory"`
	OutputPath     string `toml:"output_path" json:"output_path"`
	ContextPath    string `toml:"context_path" json:"context_path"`
}

// StoryConfig holds the title page metadata.
type StoryConfig struct {
	Title   string `toml:"title" json:"title"`
	PenName string `toml:"pen_name" json:"pen_name"`
}

// ContactInformation is printed on the title page for the author and the agent.
type ContactInformation struct {
	Name         string `toml:"name" json:"name"`
	Address1     string `toml:"address_1" json:"address_1"`
	Address2     string `toml:"address_2" json:"address_2"`
	MobileNumber string `toml:"mobile_number" json:"mobile_number"`
	EmailAddress string `toml:"email_address" json:"email_address"`
}

// Lines returns the non-empty fields in print order.
func (c *ContactInformation) Lines() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, s := range []string{c.Name, c.Address1, c.Address2, c.MobileNumber, c.EmailAddress} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DefaultConfig returns the configuration written by a new project.
func DefaultConfig() Config {
	return Config{
		Project: ProjectConfig{
			DraftDirectory: DefaultDraftDirectory,
			OutputPath:     DefaultOutputPath,
			ContextPath:    DefaultContextPath,
		},
		Story: StoryConfig{Title: "Untitled", PenName: "Unknown Author"},
	}
}

// WithDefaults fills empty project paths.
func (c Config) WithDefaults() Config {
	if c.Project.DraftDirectory == "" {
		c.Project.DraftDirectory = DefaultDraftDirectory
	}
	if c.Project.OutputPath == "" {
		c.Project.OutputPath = DefaultOutputPath
	}
	if c.Project.ContextPath == "" {
		c.Project.ContextPath = DefaultContextPath
	}
	return c
}
