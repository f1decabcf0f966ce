package mcpserver

// TargetSyntax describes how day-map tools interpret their target argument
// and what the returned JSON looks like.
const TargetSyntax = `# daymark target syntax

The days_month and days_year tools take a "target" argument:

| target              | meaning                                                          |
|---------------------|------------------------------------------------------------------|
| (empty)             | configured date properties across the whole vault                |
| Project X           | the page named "Project X" (case-insensitive)                    |
| [[Project X]]       | same, brackets are stripped                                      |
| ((block-uuid))      | the block with that id                                           |
| *                   | the page given in "current", plus all properties and journal data |
| @SELECT ...         | a read-only SQL query whose first column is an entry id          |
| query:SELECT ...    | same as @                                                        |

## Day maps

Keys are local midnights in milliseconds since the epoch. Each day may carry:

- linkedEntryId: the journal block or page the day links to
- isCurrent: the day is the journal page being viewed
- isContentful: the journal page of that day has blocks
- hasTask: a block on that journal page has a task marker
- annotations: [{displayName, color, jumpTarget}] from date properties and
  SCHEDULED / DEADLINE timestamps

## Events

events_range returns {entryId: {title, startTime, endTime, allDay, kind, repeat}}
for open scheduled and deadline blocks between start and end (yyyy-mm-dd,
inclusive). Blocks without an id:: property get one written to their file so
the ids stay stable across calls.
`
