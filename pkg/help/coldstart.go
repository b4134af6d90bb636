// Package help carries static operator-facing quickstart text.
package help

const QuickstartYAML = `# pdfharvest Quick Start

commands:
  harvest: |
    # Full pipeline: discover, download, extract, enrich, persist
    OPENAI_API_KEY=sk-... pdfharvest --config config.yaml harvest

  small_test_run: |
    OPENAI_API_KEY=sk-... pdfharvest harvest --limit 10 --workers 2

  discover_only: |
    # Print candidates without downloading anything
    pdfharvest discover --limit 25

  status: |
    pdfharvest status

configuration:
  - "catalog.api_url must contain a {page} placeholder for pagination"
  - "prompts.user_prompt_template must contain an {input_text} placeholder"
  - "ai.api_key_env names the environment variable holding the API key; the key itself never goes in the file"
  - "download.max_mb caps individual downloads; oversized documents fail without retry"

behavior:
  - "Reruns are idempotent: already-stored URLs are skipped without downloading"
  - "Every download and inference attempt appends one audit log row, including retries"
  - "Item failures are isolated; a database fault aborts the whole run"

key_tables:
  - "pdf_metadata (one row per stored document, url and pdf_path unique)"
  - "download_logs (append-only, one row per download attempt)"
  - "extraction_logs (append-only, one row per inference attempt with exact prompts and raw response)"
`
