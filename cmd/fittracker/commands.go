package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/myrjola/fittracker/internal/backup"
	"github.com/myrjola/fittracker/internal/coach"
	"github.com/myrjola/fittracker/internal/errors"
	"github.com/myrjola/fittracker/internal/i18n"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/report"
	"github.com/myrjola/fittracker/internal/workout"
)

type command struct {
	name  string
	usage string
	run   func(app *application, ctx context.Context, args []string) error
}

func commands() []command {
	return []command{
		{"exercises", "list exercises, most used first", (*application).exercises},
		{"create", "add a custom exercise", (*application).create},
		{"delete", "delete an exercise and its sessions", (*application).delete},
		{"setup", "enable or clear periodization for an exercise", (*application).setup},
		{"log", "log a completed set", (*application).logSet},
		{"rpe", "rate the last set of the day", (*application).rpe},
		{"delete-set", "delete a set of the day", (*application).deleteSet},
		{"history", "show recent sessions of an exercise", (*application).history},
		{"recommend", "prescribe the next session of an exercise", (*application).recommend},
		{"advance", "store a due progression and restart the cycle", (*application).advance},
		{"cardio", "log a cardio session or list the machines", (*application).cardio},
		{"body", "show or update body data", (*application).body},
		{"stats", "summarize a day", (*application).stats},
		{"export", "write a JSON backup", (*application).export},
		{"import", "replace all data with a JSON backup", (*application).importBackup},
		{"email-backup", "email a JSON backup", (*application).emailBackup},
		{"coach", "ask the AI coach for a tip", (*application).coach},
		{"report", "render the training plan as Markdown or HTML", (*application).report},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: fittracker <command> [flags]")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // padding
	for _, c := range commands() {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.usage)
	}
	_ = tw.Flush()
}

var errMissingFlag = errors.NewSentinel("missing required flag")

func (a *application) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parse parses args and checks that every required flag was given.
func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, name := range required {
		if !set[name] {
			return fmt.Errorf("%w: -%s", errMissingFlag, name)
		}
	}
	return nil
}

// optionalFloat is a float flag that stays nil unless given.
type optionalFloat struct {
	v *float64
}

func (o *optionalFloat) String() string {
	if o == nil || o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse float: %w", err)
	}
	o.v = &f
	return nil
}

func (a *application) today() string {
	return a.now().Format(time.DateOnly)
}

func (a *application) t(key string) string {
	return i18n.Translate(a.lang, key)
}

func formatKg(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64) + "kg"
}

func formatSets(sets []workout.SetRecord) string {
	parts := make([]string, 0, len(sets))
	for _, set := range sets {
		s := formatKg(set.Weight) + "×" + strconv.Itoa(set.Reps)
		if set.RPE != nil {
			s += fmt.Sprintf(" RPE%d %s", *set.RPE, workout.RPELabel(*set.RPE))
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func (a *application) exercises(ctx context.Context, args []string) error {
	fs := a.flags("exercises")
	category := fs.String("category", "", "only list this category")
	if err := parse(fs, args); err != nil {
		return err
	}
	exercises, err := a.workoutService.ListExercises(ctx, workout.Category(*category))
	if err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0) //nolint:mnd // padding
	for _, ex := range exercises {
		setup := ""
		if ex.BaseWeight != nil {
			setup = fmt.Sprintf("%s %s %s", formatKg(*ex.BaseWeight), ex.EquipmentType, ex.CycleStartDate)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			ex.ID, ex.Name, a.t("category."+string(ex.Category)), ex.UsageCount, setup)
	}
	if err = tw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (a *application) create(ctx context.Context, args []string) error {
	fs := a.flags("create")
	name := fs.String("name", "", "exercise name")
	category := fs.String("category", string(workout.CategoryCustom), "exercise category")
	if err := parse(fs, args, "name"); err != nil {
		return err
	}
	ex, err := a.workoutService.CreateExercise(ctx, *name, workout.Category(*category))
	if err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	_, _ = fmt.Fprintln(a.out, ex.ID)
	return nil
}

func (a *application) delete(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	id := fs.String("exercise", "", "exercise ID")
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	if err := a.workoutService.DeleteExercise(ctx, *id); err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return nil
}

func (a *application) setup(ctx context.Context, args []string) error {
	fs := a.flags("setup")
	id := fs.String("exercise", "", "exercise ID")
	base := fs.Float64("base", 0, "base weight in kg")
	equipment := fs.String("equipment", "", "barbell, dumbbell or machine")
	date := fs.String("date", a.today(), "cycle start date")
	clearSetup := fs.Bool("clear", false, "disable periodization")
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	if *clearSetup {
		if err := a.workoutService.ClearPeriodization(ctx, *id); err != nil {
			return fmt.Errorf("clear periodization: %w", err)
		}
		return nil
	}
	ex, err := a.workoutService.ConfigurePeriodization(ctx, *id, *base,
		periodization.EquipmentType(*equipment), *date)
	if err != nil {
		return fmt.Errorf("configure periodization: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "%s %s %s %s\n", ex.Name, formatKg(*ex.BaseWeight), ex.EquipmentType, ex.CycleStartDate)
	return nil
}

func (a *application) logSet(ctx context.Context, args []string) error {
	fs := a.flags("log")
	id := fs.String("exercise", "", "exercise ID")
	weight := fs.Float64("weight", 0, "weight")
	reps := fs.Int("reps", 0, "repetitions")
	rpe := fs.Int("rpe", 0, "rate of perceived exertion 1-10")
	lbs := fs.Bool("lbs", false, "weight is in pounds")
	date := fs.String("date", a.today(), "training date")
	if err := parse(fs, args, "exercise", "weight", "reps"); err != nil {
		return err
	}
	kg := *weight
	if *lbs {
		kg = workout.LbsToKg(kg)
	}
	var rating *int
	if *rpe != 0 {
		rating = rpe
	}
	if err := a.workoutService.LogSet(ctx, *id, *date, kg, *reps, rating, a.now()); err != nil {
		return fmt.Errorf("log set: %w", err)
	}
	return nil
}

func (a *application) rpe(ctx context.Context, args []string) error {
	fs := a.flags("rpe")
	id := fs.String("exercise", "", "exercise ID")
	rpe := fs.Int("rpe", 0, "rate of perceived exertion 1-10")
	quick := fs.String("quick", "", "easy, moderate or hard")
	date := fs.String("date", a.today(), "training date")
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	rating := *rpe
	switch *quick {
	case "":
	case "easy":
		rating = workout.RPEEasy
	case "moderate":
		rating = workout.RPEModerate
	case "hard":
		rating = workout.RPEHard
	default:
		return fmt.Errorf("%w: unknown quick rating %q", workout.ErrInvalidInput, *quick)
	}
	if err := a.workoutService.RateLastSet(ctx, *id, *date, rating); err != nil {
		return fmt.Errorf("rate last set: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "RPE %d %s\n", rating, workout.RPELabel(rating))
	return nil
}

func (a *application) deleteSet(ctx context.Context, args []string) error {
	fs := a.flags("delete-set")
	id := fs.String("exercise", "", "exercise ID")
	index := fs.Int("index", 0, "0-based set number")
	date := fs.String("date", a.today(), "training date")
	if err := parse(fs, args, "exercise", "index"); err != nil {
		return err
	}
	if err := a.workoutService.DeleteSet(ctx, *id, *date, *index); err != nil {
		return fmt.Errorf("delete set: %w", err)
	}
	return nil
}

func (a *application) history(ctx context.Context, args []string) error {
	fs := a.flags("history")
	id := fs.String("exercise", "", "exercise ID")
	n := fs.Int("n", 5, "number of sessions") //nolint:mnd // default
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	sessions, err := a.workoutService.RecentSessions(ctx, *id, *n)
	if err != nil {
		return fmt.Errorf("recent sessions: %w", err)
	}
	for _, sess := range sessions {
		_, _ = fmt.Fprintf(a.out, "%s: %s\n", sess.Date, formatSets(sess.Sets))
	}
	return nil
}

func (a *application) recommend(ctx context.Context, args []string) error {
	fs := a.flags("recommend")
	id := fs.String("exercise", "", "exercise ID")
	date := fs.String("date", a.today(), "session date")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	rec, err := a.workoutService.Recommend(ctx, *id, *date)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err = enc.Encode(rec); err != nil {
			return fmt.Errorf("encode recommendation: %w", err)
		}
		return nil
	}
	if rec == nil {
		_, _ = fmt.Fprintln(a.out, a.t("cli.no-recommendation"))
		return nil
	}
	_, _ = fmt.Fprintf(a.out, "C%d-%s %s\n%s\n", rec.CycleNumber, rec.WeekType, rec.WeekLabel,
		periodization.Summary(*rec))
	if rec.ProgressInfo != "" {
		_, _ = fmt.Fprintln(a.out, rec.ProgressInfo)
	}
	return nil
}

func (a *application) advance(ctx context.Context, args []string) error {
	fs := a.flags("advance")
	id := fs.String("exercise", "", "exercise ID")
	date := fs.String("date", a.today(), "date the new cycle starts")
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	advanced, err := a.workoutService.AdvanceCycle(ctx, *id, *date)
	if err != nil {
		return fmt.Errorf("advance cycle: %w", err)
	}
	if advanced {
		_, _ = fmt.Fprintln(a.out, a.t("cli.advanced"))
	} else {
		_, _ = fmt.Fprintln(a.out, a.t("cli.not-advanced"))
	}
	return nil
}

func (a *application) cardio(ctx context.Context, args []string) error {
	fs := a.flags("cardio")
	list := fs.Bool("list", false, "list the cardio machines")
	machine := fs.String("machine", "", "machine name")
	duration := fs.Float64("duration", 0, "minutes")
	date := fs.String("date", a.today(), "training date")
	var distance, kcal, heartRate, speed, incline optionalFloat
	fs.Var(&distance, "distance", "distance in km")
	fs.Var(&kcal, "kcal", "energy reported by the machine")
	fs.Var(&heartRate, "heart-rate", "average heart rate")
	fs.Var(&speed, "speed", "average speed in km/h")
	fs.Var(&incline, "incline", "incline in percent")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *list {
		for _, m := range workout.CardioMachines() {
			_, _ = fmt.Fprintf(a.out, "%s\tMET %s\n", m.Name, strconv.FormatFloat(m.MET, 'f', -1, 64))
		}
		return nil
	}
	rec, err := a.workoutService.LogCardio(ctx, workout.CardioRecord{
		ID:        "",
		Date:      *date,
		Machine:   *machine,
		Duration:  *duration,
		Distance:  distance.v,
		Kcal:      kcal.v,
		HeartRate: heartRate.v,
		Speed:     speed.v,
		Incline:   incline.v,
	})
	if err != nil {
		return fmt.Errorf("log cardio: %w", err)
	}
	_, _ = fmt.Fprintln(a.out, rec.ID)
	return nil
}

func (a *application) body(ctx context.Context, args []string) error {
	fs := a.flags("body")
	var weight, height optionalFloat
	fs.Var(&weight, "weight", "body weight in kg")
	fs.Var(&height, "height", "height in cm")
	age := fs.Int("age", 0, "age in years")
	if err := parse(fs, args); err != nil {
		return err
	}
	body, err := a.workoutService.BodyData(ctx)
	if err != nil {
		return fmt.Errorf("body data: %w", err)
	}
	if weight.v != nil || height.v != nil || *age != 0 {
		if weight.v != nil {
			body.Weight = *weight.v
		}
		if height.v != nil {
			body.Height = *height.v
		}
		if *age != 0 {
			body.Age = *age
		}
		if err = a.workoutService.SaveBodyData(ctx, body); err != nil {
			return fmt.Errorf("save body data: %w", err)
		}
	}
	_, _ = fmt.Fprintf(a.out, "%s %scm %d\n", formatKg(body.Weight),
		strconv.FormatFloat(body.Height, 'f', -1, 64), body.Age)
	return nil
}

func (a *application) stats(ctx context.Context, args []string) error {
	fs := a.flags("stats")
	date := fs.String("date", a.today(), "day to summarize")
	if err := parse(fs, args); err != nil {
		return err
	}
	summary, err := a.workoutService.DailyStats(ctx, *date)
	if err != nil {
		return fmt.Errorf("daily stats: %w", err)
	}
	body, err := a.workoutService.BodyData(ctx)
	if err != nil {
		return fmt.Errorf("body data: %w", err)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0) //nolint:mnd // padding
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", a.t("stats.title"), *date)
	_, _ = fmt.Fprintf(tw, "%s\t%s kcal\n", a.t("stats.kcal"), strconv.FormatFloat(summary.TotalKcal, 'f', -1, 64))
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", a.t("stats.time"),
		(time.Duration(summary.TrainingTimeSeconds) * time.Second).String())
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", a.t("stats.volume"), formatKg(summary.TotalVolume))
	_, _ = fmt.Fprintf(tw, "%s\t%s kcal\n", a.t("stats.bmr"), strconv.FormatFloat(workout.BMR(body), 'f', -1, 64))
	if err = tw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (a *application) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	path := fs.String("o", backup.FileName(a.today()), "output file, - for stdout")
	if err := parse(fs, args); err != nil {
		return err
	}
	b, err := backup.Export(ctx, a.workoutService, a.now())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if *path == "-" {
		return backup.Write(a.out, b) //nolint:wrapcheck // already wrapped
	}
	f, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err = backup.Write(f, b); err != nil {
		return errors.Join(err, f.Close())
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}
	_, _ = fmt.Fprintln(a.out, *path)
	return nil
}

func (a *application) importBackup(ctx context.Context, args []string) error {
	fs := a.flags("import")
	path := fs.String("i", "", "backup file")
	if err := parse(fs, args, "i"); err != nil {
		return err
	}
	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer func() { _ = f.Close() }()
	b, err := backup.Read(f)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if err = backup.Import(ctx, a.workoutService, b); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

func (a *application) emailBackup(ctx context.Context, args []string) error {
	fs := a.flags("email-backup")
	to := fs.String("to", "", "email address")
	if err := parse(fs, args, "to"); err != nil {
		return err
	}
	b, err := backup.Export(ctx, a.workoutService, a.now())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err = backup.NewMailer(a.cfg.BackupURL, a.logger).Send(ctx, *to, a.today(), b); err != nil {
		return fmt.Errorf("send backup: %w", err)
	}
	return nil
}

func (a *application) coach(ctx context.Context, args []string) error {
	fs := a.flags("coach")
	id := fs.String("exercise", "", "exercise ID")
	date := fs.String("date", a.today(), "session date")
	if err := parse(fs, args, "exercise"); err != nil {
		return err
	}
	ex, err := a.workoutService.GetExercise(ctx, *id)
	if err != nil {
		return fmt.Errorf("get exercise: %w", err)
	}
	rec, err := a.workoutService.Recommend(ctx, *id, *date)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	recent, err := a.workoutService.RecentSessions(ctx, *id, 5) //nolint:mnd // prompt history
	if err != nil {
		return fmt.Errorf("recent sessions: %w", err)
	}

	var opts []coach.Option
	if a.cfg.OpenAIBaseURL != "" {
		opts = append(opts, coach.WithBaseURL(a.cfg.OpenAIBaseURL))
	}
	if a.cfg.OpenAIModel != "" {
		opts = append(opts, coach.WithModel(a.cfg.OpenAIModel))
	}
	tip, err := coach.New(a.cfg.OpenAIAPIKeys, a.logger, opts...).Advise(ctx, ex, rec, recent)
	if err != nil {
		return fmt.Errorf("advise: %w", err)
	}
	_, _ = fmt.Fprintln(a.out, tip)
	return nil
}

func (a *application) report(ctx context.Context, args []string) error {
	fs := a.flags("report")
	date := fs.String("date", a.today(), "plan date")
	html := fs.Bool("html", false, "render HTML instead of Markdown")
	if err := parse(fs, args); err != nil {
		return err
	}
	exercises, err := a.workoutService.ListExercises(ctx, "")
	if err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}
	doc, err := report.Build(ctx, exercises, a.workoutService, *date, a.lang)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	if *html {
		if doc, err = report.RenderHTML(doc); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	}
	_, _ = io.WriteString(a.out, doc)
	return nil
}
