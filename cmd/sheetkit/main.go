// Command sheetkit is an interactive shell over the workbook engine:
// enter cell values and formulas, recalculate, and inspect spills,
// compiled programs and cache telemetry.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/sheetkit/sheetkit/internal/fn"
	"github.com/sheetkit/sheetkit/pkg/workbook"
)

const (
	historyFile = ".sheetkit_history"
	prompt      = "> "
	helpText    = `commands:
  set <cell> <value>     store a literal (set A1 5) or formula (set B1 =A1*2)
  get <cell>             show a cell's value
  formula <cell>         show a cell's formula text
  clear <cell>           empty a cell
  sheet list             list sheets
  sheet use <name>       switch the current sheet
  sheet add <name>       add a sheet
  sheet rename <old> <new>
  sheet delete <name>
  recalc [st|mt]         recalculate (st: single-threaded, mt: worker pool)
  spill <cell>           show the spill extent anchored at a cell
  disasm <cell>          disassemble a cell's compiled program
  stats                  program cache and recalc telemetry
  save <file>            write the calc settings as YAML
  load <file>            start a fresh workbook with settings from a file
  help                   this text
  quit                   exit`
)

type shell struct {
	wb    *workbook.Workbook
	sheet string // current sheet for unqualified cell targets
	out   io.Writer
	last  workbook.Stats
}

func main() {
	var settingsPath, extPath string
	flag.StringVar(&settingsPath, "settings", "", "calc settings YAML file")
	flag.StringVar(&extPath, "ext", "", "sqlite database backing external references")
	flag.Parse()

	wb, err := buildWorkbook(settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheetkit: %v\n", err)
		os.Exit(1)
	}
	sh := &shell{wb: wb, sheet: wb.Sheets()[0], out: os.Stdout}
	if extPath != "" {
		prov, err := openProvider(extPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sheetkit: %v\n", err)
			os.Exit(1)
		}
		defer prov.Close()
		wb.SetExternalProvider(prov)
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		os.Exit(sh.runInteractive(settingsPath))
	}
	os.Exit(sh.runPiped())
}

func buildWorkbook(settingsPath string) (*workbook.Workbook, error) {
	if settingsPath == "" {
		return workbook.New(), nil
	}
	s, err := workbook.LoadSettingsFile(settingsPath)
	if err != nil {
		return nil, err
	}
	return workbook.NewWithSettings(s), nil
}

func (sh *shell) runInteractive(settingsPath string) int {
	fmt.Fprintln(sh.out, "sheetkit — type help for commands, Ctrl+D to exit")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(prompt)
		if err != nil { // Ctrl+D or Ctrl+C
			fmt.Fprintln(sh.out)
			return 0
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if quit := sh.dispatch(line); quit {
			return 0
		}
	}
}

func (sh *shell) runPiped() int {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if quit := sh.dispatch(line); quit {
			break
		}
	}
	return 0
}

// completer offers command verbs and function names.
func completer(line string) []string {
	verbs := []string{"set ", "get ", "formula ", "clear ", "sheet ", "recalc",
		"spill ", "disasm ", "stats", "save ", "load ", "help", "quit"}
	var out []string
	for _, v := range verbs {
		if strings.HasPrefix(v, strings.ToLower(line)) {
			out = append(out, v)
		}
	}
	if i := strings.LastIndexAny(line, " =(,"); i >= 0 {
		head, tail := line[:i+1], strings.ToUpper(line[i+1:])
		if tail != "" {
			names := fn.Names()
			sort.Strings(names)
			for _, name := range names {
				if strings.HasPrefix(name, tail) {
					out = append(out, head+name+"(")
				}
			}
		}
	}
	return out
}

// dispatch runs one command line; it reports whether the shell should
// exit.
func (sh *shell) dispatch(line string) bool {
	verb, rest := splitWord(line)
	switch strings.ToLower(verb) {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(sh.out, helpText)
	case "set":
		sh.cmdSet(rest)
	case "get":
		sh.cmdGet(rest)
	case "formula":
		sh.cmdFormula(rest)
	case "clear":
		sh.cmdClear(rest)
	case "sheet":
		sh.cmdSheet(rest)
	case "recalc":
		sh.cmdRecalc(rest)
	case "spill":
		sh.cmdSpill(rest)
	case "disasm":
		sh.cmdDisasm(rest)
	case "stats":
		sh.cmdStats()
	case "save":
		sh.cmdSave(rest)
	case "load":
		sh.cmdLoad(rest)
	default:
		fmt.Fprintf(sh.out, "unknown command %q, try help\n", verb)
	}
	return false
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// target splits "Sheet2!B3" into sheet and cell, defaulting to the
// current sheet.
func (sh *shell) target(s string) (sheet, a1 string) {
	if i := strings.LastIndexByte(s, '!'); i >= 0 {
		return strings.Trim(s[:i], "'"), s[i+1:]
	}
	return sh.sheet, s
}

func (sh *shell) cmdSet(rest string) {
	cellArg, input := splitWord(rest)
	if cellArg == "" || input == "" {
		fmt.Fprintln(sh.out, "usage: set <cell> <value>")
		return
	}
	sheet, a1 := sh.target(cellArg)
	var err error
	if strings.HasPrefix(input, "=") {
		err = sh.wb.SetFormula(sheet, a1, input)
	} else {
		err = sh.wb.SetValue(sheet, a1, sh.wb.ParseLiteral(input))
	}
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	sh.last = sh.wb.Recalc()
	sh.cmdGet(cellArg)
}

func (sh *shell) cmdGet(rest string) {
	sheet, a1 := sh.target(rest)
	disp, err := sh.wb.Display(sheet, a1)
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	fmt.Fprintf(sh.out, "%s!%s = %s\n", sheet, a1, disp)
}

func (sh *shell) cmdFormula(rest string) {
	sheet, a1 := sh.target(rest)
	text, ok := sh.wb.FormulaText(sheet, a1)
	if !ok {
		fmt.Fprintf(sh.out, "%s!%s holds no formula\n", sheet, a1)
		return
	}
	fmt.Fprintln(sh.out, text)
}

func (sh *shell) cmdClear(rest string) {
	sheet, a1 := sh.target(rest)
	if err := sh.wb.Clear(sheet, a1); err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	sh.last = sh.wb.Recalc()
}

func (sh *shell) cmdSheet(rest string) {
	sub, args := splitWord(rest)
	switch strings.ToLower(sub) {
	case "list", "":
		for _, name := range sh.wb.Sheets() {
			marker := "  "
			if strings.EqualFold(name, sh.sheet) {
				marker = "* "
			}
			fmt.Fprintln(sh.out, marker+name)
		}
	case "use":
		for _, name := range sh.wb.Sheets() {
			if strings.EqualFold(name, args) {
				sh.sheet = name
				return
			}
		}
		fmt.Fprintf(sh.out, "no sheet %q\n", args)
	case "add":
		if err := sh.wb.AddSheet(args); err != nil {
			fmt.Fprintln(sh.out, err)
		}
	case "rename":
		oldName, newName := splitWord(args)
		if err := sh.wb.RenameSheet(oldName, newName); err != nil {
			fmt.Fprintln(sh.out, err)
			return
		}
		if strings.EqualFold(sh.sheet, oldName) {
			sh.sheet = newName
		}
	case "delete":
		if err := sh.wb.DeleteSheet(args); err != nil {
			fmt.Fprintln(sh.out, err)
			return
		}
		if strings.EqualFold(sh.sheet, args) {
			sh.sheet = sh.wb.Sheets()[0]
		}
		sh.last = sh.wb.Recalc()
	default:
		fmt.Fprintln(sh.out, "usage: sheet list|use|add|rename|delete")
	}
}

func (sh *shell) cmdRecalc(rest string) {
	switch strings.ToLower(rest) {
	case "st":
		sh.last = sh.wb.RecalcSequential()
	case "mt":
		sh.last = sh.wb.RecalcParallel()
	case "":
		sh.last = sh.wb.Recalc()
	default:
		fmt.Fprintln(sh.out, "usage: recalc [st|mt]")
		return
	}
	fmt.Fprintf(sh.out, "%d cells in %d levels (%v)\n",
		sh.last.Cells, sh.last.Levels, sh.last.Elapsed)
}

func (sh *shell) cmdSpill(rest string) {
	sheet, a1 := sh.target(rest)
	rows, cols, ok := sh.wb.SpillExtent(sheet, a1)
	if !ok {
		fmt.Fprintf(sh.out, "%s!%s anchors no spill\n", sheet, a1)
		return
	}
	fmt.Fprintf(sh.out, "%s!%s spills %d rows x %d cols\n", sheet, a1, rows, cols)
}

func (sh *shell) cmdDisasm(rest string) {
	sheet, a1 := sh.target(rest)
	text, ok := sh.wb.Disassemble(sheet, a1)
	if !ok {
		fmt.Fprintf(sh.out, "%s!%s holds no formula\n", sheet, a1)
		return
	}
	fmt.Fprint(sh.out, text)
}

func (sh *shell) cmdStats() {
	hits, misses := sh.wb.CacheStats()
	fmt.Fprintf(sh.out, "programs: %d  cache hits: %d  misses: %d\n",
		sh.wb.ProgramCount(), hits, misses)
	fmt.Fprintf(sh.out, "last pass: %d cells, %d levels, %d on cycles, %d iterations, %v\n",
		sh.last.Cells, sh.last.Levels, sh.last.CycleCells, sh.last.Iterations, sh.last.Elapsed)
}

func (sh *shell) cmdSave(rest string) {
	if rest == "" {
		fmt.Fprintln(sh.out, "usage: save <file>")
		return
	}
	data, err := sh.wb.Settings().Marshal()
	if err == nil {
		err = os.WriteFile(rest, data, 0o644)
	}
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	fmt.Fprintf(sh.out, "settings written to %s\n", rest)
}

func (sh *shell) cmdLoad(rest string) {
	if rest == "" {
		fmt.Fprintln(sh.out, "usage: load <file>")
		return
	}
	wb, err := buildWorkbook(rest)
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	// settings are fixed per workbook, so loading starts a fresh one
	sh.wb = wb
	sh.sheet = wb.Sheets()[0]
	sh.last = workbook.Stats{}
	fmt.Fprintf(sh.out, "new workbook with settings from %s\n", rest)
}
