package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeComplexity() string {
	return `Measures cyclomatic complexity of Python functions and the maintainability index of each module.

USE WHEN:
- Identifying functions that are hard to test or maintain
- Finding refactoring candidates before code reviews
- Comparing module maintainability across a codebase

INTERPRETING RESULTS:
- Cyclomatic complexity > 10: function has many code paths, consider splitting
- Cyclomatic complexity > 20: high risk, strong refactoring candidate
- Maintainability index is on a 0-100 scale; below 20 is hard to maintain
- Nested functions are folded into their enclosing function

METRICS RETURNED:
- Per-function: file, function, cyclomatic_complexity, line_start, line_end, loc
- Per-module: maintainability_index, loc
- Summary: avg_complexity, complex_functions, total_functions, total_modules`
}

func describeOrphans() string {
	return `Finds functions and classes that no other definition in the codebase calls.

USE WHEN:
- Cleaning up code before a refactoring
- Finding code left behind after a feature was removed
- Locating the entry points of an unfamiliar codebase

INTERPRETING RESULTS:
- Calls are resolved by name only; dynamic dispatch and reflection are not seen
- Names starting with "__" and "main" are never reported as orphans
- Entry points are definitions that call others but are called by nothing
- Lists are capped; summary.total_orphans counts every orphan

METRICS RETURNED:
- orphan_functions, orphan_classes, entry_points: name, full_name, file, line, type
- Summary: total_definitions, total_orphans, orphan_percentage`
}

func describePatterns() string {
	return `Mines structural token patterns from every Python function, labels common ones and flags anti-patterns.

USE WHEN:
- Learning the dominant coding idioms of a codebase
- Finding functions with missing returns, deep conditionals or nested loops
- Spotting classes with unusual shapes

INTERPRETING RESULTS:
- A pattern is the pre-order sequence of FOR_LOOP, WHILE_LOOP, CONDITIONAL, TRY_EXCEPT,
  CONTEXT_MANAGER, RETURN, RAISE and CALL:<name> tokens
- Classification labels (Standard, WebScraping, Defensive, ...) are heuristic
- HIGH_COMPLEXITY (HIGH): more than 5 conditionals
- NESTED_LOOPS (MEDIUM): more than 2 loop tokens, nesting depth is not measured
- MISSING_RETURN (LOW): no return statement and no calls
- Findings are best-effort signals, not verified lint errors

METRICS RETURNED:
- common_patterns: pattern, count, percentage, classification
- anti_patterns: type, file, line, function, severity, details
- rare_patterns, total_patterns, total_functions, total_classes, class_stats`
}

func describeSimilarity() string {
	return `Clusters functions by embedding similarity and lists the most similar pairs.

USE WHEN:
- Looking for copy-pasted or near-duplicate logic
- Finding candidates for a shared helper
- Grouping functions by what they do rather than where they live

INTERPRETING RESULTS:
- Requires an embedding model; returns an "embedding model not available" error otherwise
- Similarity is cosine similarity of embeddings; pairs above 0.60 are reported
- Pairs are only compared inside a cluster and capped at the 20 most similar
- Fewer than two qualifying functions returns "Not enough functions found"

METRICS RETURNED:
- clusters: cluster label to function names (path::name)
- similar_pairs: func1, func2, similarity, code1, code2 previews
- total_functions, num_clusters, stats (avg_cluster_size, similar_pairs_count)`
}

func describeAll() string {
	return `Runs several analyses over the same file set concurrently and returns one combined report.

USE WHEN:
- Getting a first overview of a codebase
- Producing a single report for a review or an audit

INTERPRETING RESULTS:
- Each analysis is independent; a failed analysis carries {error, message} and the others still return data
- Analyses not requested are omitted from the report

METRICS RETURNED:
- run_id, generated_at, files
- complexity, orphan, patterns, similarity as returned by the individual tools`
}

func describeFocusedContext() string {
	return `Gathers everything known about one file or one function or class definition.

USE WHEN:
- Preparing to change a specific function
- Understanding who calls a definition and what it calls
- Reviewing a single file in depth

INTERPRETING RESULTS:
- A bare name matching several definitions returns the candidates and an error; retry with path::name
- Callers and callees come from the name-resolved call graph

METRICS RETURNED:
- target: type (file or symbol), path or symbol definition
- callers, callees (symbols only)
- complexity, maintainability (files only), anti_patterns`
}

func describeSecurity() string {
	return `Runs the Bandit security scanner over a Python codebase and normalizes its findings.

USE WHEN:
- Auditing code for common security issues before a release
- Checking for hard-coded secrets, shell injection or unsafe deserialization

INTERPRETING RESULTS:
- Requires bandit on PATH (pip install bandit[toml])
- Findings are sorted HIGH, MEDIUM, LOW by severity
- Confidence indicates how sure Bandit is that the issue is real

METRICS RETURNED:
- Summary: high_severity, medium_severity, low_severity, total_issues, files_scanned, files_with_issues
- vulnerabilities: file_path, relative_path, line_number, issue_severity, issue_confidence, test_name, issue_text, code, more_info
- metadata: scanned_directory, scan_time, bandit_version`
}
