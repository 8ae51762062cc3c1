package mcpserver

// DecisionFormatContract describes the on-disk decision record format for
// MCP clients that read or author records.
const DecisionFormatContract = `# drctl Decision Record Format

Each decision lives at ` + "`" + `<repo>/<domain dir>/<id>.md` + "`" + `.

` + "```" + `markdown
---
id: DR--20240315--platform--use-postgres   # DR--YYYYMMDD--<domain>--<slug>
dateCreated: "2024-03-15"
lastEdited: "2024-03-20"
dateAccepted: "2024-03-20"                # set when accepted
version: 1.1.0                            # MAJOR.MINOR.PATCH
status: accepted                          # draft | proposed | accepted | deprecated |
                                          # superseded | rejected | retired | archived
changeType: revision                      # creation | correction | revision |
                                          # supersession | retirement
domain: platform
slug: use-postgres
confidence: 0.8                           # optional, 0..1
supersedes: DR--20230101--platform--use-mysql
supersededBy: null
lastReviewedAt: "2024-03-20"
reviewHistory:
  - date: "2024-03-20"
    type: scheduled                       # initial | scheduled | adhoc
    outcome: keep                         # keep | revise | retire | supersede
sources: [https://example.com/rfc]
changelog:
  - date: "2024-03-15"
    note: Initial creation
---

# Use Postgres

Markdown body.
` + "```" + `

## Rules

1. The domain is the third ` + "`" + `--` + "`" + `-separated segment of the id.
2. ` + "`" + `changelog` + "`" + ` is append-only: one entry per lifecycle operation.
3. ` + "`" + `supersededBy` + "`" + ` must be set whenever status is superseded.
4. ` + "`" + `changeType: creation` + "`" + ` is only valid while status is draft, proposed or accepted.
5. Dates use ` + "`" + `YYYY-MM-DD` + "`" + `.
6. Change records through ` + "`" + `drctl` + "`" + ` commands rather than by editing frontmatter, so
   versions, changelog entries and git commits stay consistent.
`
