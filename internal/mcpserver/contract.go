package mcpserver

// ItemFormatContract describes the canonical item file format that LLM
// consumers should follow when creating or updating items.
const ItemFormatContract = `# Lagu Item Format Contract

Every item stored in Lagu is one Markdown file: a YAML metadata block
between ` + "```" + `---` + "```" + ` fences followed by the free-form body.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – used in listings and search
description: One-line summary      # OPTIONAL
priority: medium                   # task types only: high | medium | low
status_id: 1                       # task types only: workflow status id
start_date: 2025-01-15             # OPTIONAL – YYYY-MM-DD
end_date: 2025-01-20               # OPTIONAL – YYYY-MM-DD
tags:                              # OPTIONAL – YAML list
  - tag-one
related:                           # OPTIONAL – "type-id" references
  - issues-42
  - docs-7
created_at: 2025-01-15T09:00:00Z   # set by the service
updated_at: 2025-01-15T09:00:00Z   # set by the service
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **The metadata block is mandatory.** The opening ` + "```" + `---` + "```" + ` fence is the
   first line of the file.
2. **` + "`" + `title` + "`" + ` is required** and at most 500 characters after whitespace
   normalization.
3. **Item types.** Built-ins: issues, plans (tasks), docs, knowledge
   (documents), sessions, dailies. Custom types can be registered and
   behave like issues/plans or docs/knowledge.
4. **Identifiers** are minted by the service: sequential numbers for most
   types, a timestamp for sessions, the date (YYYY-MM-DD) for dailies.
   At most one daily exists per date.
5. **References** to other items use ` + "`" + `type-id` + "`" + ` (e.g. ` + "`" + `issues-42` + "`" + `). The
   type part never contains a dash.
6. **Dates** are strict calendar dates in YYYY-MM-DD form.
7. **Content body is required** for task and document types; sessions and
   dailies may omit it.
8. **Encoding** is UTF-8.

Prefer the create/update tools over writing files directly; they assign
ids, validate fields, and keep the search index in sync.
`
