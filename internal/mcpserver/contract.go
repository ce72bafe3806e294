package mcpserver

// DeckFormatContract describes the Markdown deck format that LLM consumers
// should follow when creating decks.
const DeckFormatContract = `# Lexa Deck Format

A deck is one word group. Decks unlock in sequence order: the next group opens once the
current one has been completed at least twice with 80% lifetime accuracy.

## Structure

` + "```" + `markdown
---
id: food-basics        # OPTIONAL – defaults to the slug of the file name
title: Food basics     # OPTIONAL – defaults to the file name
sequence: 3            # OPTIONAL – defaults to the leading digits of the file name
---

# Lines starting with # are comments.
apple :: manzana
- bread :: pan
* water = agua
` + "```" + `

## Rules

1. **One pair per line.** The term comes first, then ` + "`" + `::` + "`" + ` (or ` + "`" + `=` + "`" + `), then the translation.
2. **Bullets** ` + "`" + `- ` + "`" + ` and ` + "`" + `* ` + "`" + ` are stripped. Blank lines and ` + "`" + `#` + "`" + ` lines are ignored.
3. **Duplicate terms** (ignoring case and spacing) keep the first translation.
4. **File names** end with ` + "`" + `.md` + "`" + `. A leading number such as ` + "`" + `03-food.md` + "`" + ` sets the sequence.
5. **Answers are graded** ignoring case and extra whitespace. Accents matter: an answer that
   only differs by diacritics is reported as a near match but counts as wrong.
6. **Re-importing** a deck with the same id updates translations and keeps review progress.

Spreadsheet decks (` + "`" + `.xlsx` + "`" + `) use the first sheet: column A is the term, column B the
translation, with an optional ` + "`" + `term | translation` + "`" + ` header row.
`
