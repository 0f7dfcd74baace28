package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/brensch/snekgrid/store"
)

func main() {
	file := flag.String("file", "", "Trajectory parquet file (ticks_<run>.parquet)")
	runs := flag.String("runs", "", "runs.csv to list instead")
	events := flag.String("events", "", "events-*.jsonl.zst file to summarise instead")
	flag.Parse()

	switch {
	case *file != "":
		if err := printLegs(*file); err != nil {
			log.Fatalf("Failed to read trajectory: %v", err)
		}
	case *runs != "":
		if err := printRuns(*runs); err != nil {
			log.Fatalf("Failed to read run log: %v", err)
		}
	case *events != "":
		if err := printEvents(*events); err != nil {
			log.Fatalf("Failed to read event log: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func printLegs(path string) error {
	rows, err := store.ReadTickParquet(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no rows")
		return nil
	}
	legs := store.SummariseLegs(rows)

	fmt.Printf("run %s: %d rows, %d legs, last turn %d\n\n", rows[0].RunID, len(rows), len(legs), rows[len(rows)-1].Turn)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SNAKE\tGOAL\tCLASS\tTICKS\tFALLBACKS\tNO_SAFE\tCROSSINGS\tRESULT")
	for _, l := range legs {
		result := "open"
		switch {
		case l.Collided:
			result = "collided (" + l.Cause + ")"
		case l.Ate:
			result = "ate"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			l.SnakeID, l.Goal, l.PathClass, l.Ticks, l.Fallbacks, l.NoSafe, l.Crossings, result)
	}
	return tw.Flush()
}

func printRuns(path string) error {
	records, err := store.ReadRunLog(path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tPRESET\tOUTCOME\tTURNS\tGOALS\tLEG_MEAN\tLEG_SD\tFALLBACKS\tCROSSINGS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%.1f\t%.1f\t%d\t%d\n",
			r.RunID, r.Preset, r.Outcome, r.Turns, r.GoalsEaten, r.GoalsTotal, r.LegMean, r.LegStdDev, r.Fallbacks, r.Crossings)
	}
	return tw.Flush()
}

func printEvents(path string) error {
	evs, err := store.ReadEvents(path)
	if err != nil {
		return err
	}
	perRun := make(map[string]int)
	var order []string
	for _, ev := range evs {
		if _, ok := perRun[ev.RunID]; !ok {
			order = append(order, ev.RunID)
		}
		perRun[ev.RunID]++
		if ev.Done {
			fmt.Printf("%s finished: %s at turn %d\n", ev.RunID, ev.Outcome, ev.Turn)
		}
	}
	for _, id := range order {
		fmt.Printf("%s: %d events\n", id, perRun[id])
	}
	return nil
}
