package mcpserver

// TemplateFormatContract describes the Markdown template format and the
// directives a section may carry.
const TemplateFormatContract = `# Quire Template Format

A template is a Markdown file. Optional YAML frontmatter configures the whole
template; each ` + "`## heading`" + ` starts a section that runs as one generation step.

## Frontmatter

` + "```" + `yaml
---
enabled: true          # workflows only; false disables scheduled runs
week_start: monday     # first day for {this-week} and weekly caching
default_model: gpt-4   # model for sections without @model
---
` + "```" + `

## Reserved sections

- ` + "`## Instructions`" + ` is the system prompt for every section.
- ` + "`## Context Instructions`" + ` prefixes the curated chat context.

Reserved sections never run.

## Directives

Directives are lines starting with ` + "`@name value`" + ` inside a section. They are
stripped from the prompt.

| Directive | Value |
| --- | --- |
| @input | ` + "`file:<pattern>`" + `, ` + "`buffer:<name>`" + `; append ` + "`(required)`" + ` to skip the section when nothing matches |
| @output | ` + "`context`" + `, ` + "`file:<pattern>`" + `, ` + "`buffer:<name>`" + ` |
| @header | heading written above routed output (defaults to the section name) |
| @write-mode | ` + "`append`" + `, ` + "`replace`" + ` or ` + "`new`" + ` |
| @cache | ` + "`daily`" + `, ` + "`weekly`" + `, ` + "`session`" + ` or a duration such as ` + "`2h`" + ` |
| @run-on | ` + "`daily`" + `, ` + "`weekdays`" + `, ` + "`weekends`" + `, ` + "`never`" + ` or days like ` + "`mon, thu`" + ` |
| @model | model identifier |
| @tools | comma separated tool names |
| @recent-runs | number of prior assistant turns kept in the window |
| @recent-summaries | number of earlier cached outputs fed into the prompt |
| @token-threshold | skip the section when the window exceeds this many tokens |

## Patterns

- Date tokens: ` + "`{today}`" + `, ` + "`{yesterday}`" + `, ` + "`{this-week}`" + `, ` + "`{last-week}`" + `, ` + "`{this-month}`" + `, ` + "`{day-name}`" + `.
- ` + "`{latest}`" + ` / ` + "`{latest:N}`" + ` pick the newest dated files in a directory.
- ` + "`{pending}`" + ` / ` + "`{pending:N}`" + ` pick files the workflow has not processed yet.
  A file is pending until its content hash is recorded and it has not been
  modified since.
- Globs (` + "`*`" + `, ` + "`?`" + `) match within a single directory.
- Paths must stay inside the vault; ` + "`..`" + ` and absolute paths are rejected.

## Example

` + "```" + `markdown
# Inbox

## Instructions
You are a careful assistant.

## Triage
@input file:inbox/{pending:5}
@output file:journal/{today}
@header Inbox
@run-on weekdays
Sort these notes into tasks and ideas.
` + "```" + `
`
