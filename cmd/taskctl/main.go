package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"taskmanager/internal/board"
	"taskmanager/internal/client"
	"taskmanager/internal/focus"
	"taskmanager/internal/model"
)

const usage = `usage: taskctl [-server URL] <command> [args]

commands:
  register -first F -last L -dob DD-MM-YYYY -email E -password P [-phone N]
  login -email E -password P
  logout
  board
  list [-q text] [-date YYYY-MM-DD]
  add -title T [-description D] [-priority P] [-due YYYY-MM-DD] [-status S]
  move <id> <not-started|in-progress|completed>
  focus [-minutes N] [-q text] <id>
`

type app struct {
	api      *client.Client
	sessions *client.SessionStore
	session  client.Session
	tr       model.Transitions
	loc      *time.Location
	out      io.Writer
}

func main() {
	server := flag.String("server", envOr("TASKMANAGER_URL", "http://localhost:3000"), "API base URL")
	sessionPath := flag.String("session", "", "session file (default: user config dir)")
	permissive := flag.Bool("permissive", false, "allow any status change when moving cards")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	path := *sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not locate config dir: %v\n", err)
			os.Exit(1)
		}
		path = p
	}

	mode := model.TransitionStrict
	if *permissive {
		mode = model.TransitionPermissive
	}
	a := &app{
		api:      client.New(*server, nil),
		sessions: client.NewSessionStore(path),
		tr:       model.NewTransitions(mode),
		loc:      time.Local,
		out:      os.Stdout,
	}
	sess, err := a.sessions.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read session: %v\n", err)
		os.Exit(1)
	}
	a.session = sess
	a.api.SetToken(sess.Token)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "board":
		return a.board(ctx)
	case "list":
		return a.list(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "move":
		return a.move(ctx, args)
	case "focus":
		return a.focus(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func (a *app) requireLogin() error {
	if !a.session.LoggedIn() {
		return errors.New("not logged in, run `taskctl login` first")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var req client.RegisterRequest
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.DOB, "dob", "", "date of birth")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Phone, "phone", "", "phone")
	fs.StringVar(&req.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID, err := a.api.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered. Your user id is %s\n", userID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	u := model.User{FirstName: res.FirstName, LastName: res.LastName}
	sess := client.Session{
		UserID:    res.UserID,
		FirstName: res.FirstName,
		LastName:  res.LastName,
		FullName:  u.FullName(),
		Token:     res.Token,
	}
	if err := a.sessions.Save(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", sess.FullName)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if err := a.api.Logout(ctx, a.session.UserID); err != nil {
		return err
	}
	if err := a.sessions.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) load(ctx context.Context) (*board.State, error) {
	if err := a.requireLogin(); err != nil {
		return nil, err
	}
	st := board.NewState(nil)
	if err := a.api.Refresh(ctx, st, a.session.UserID, a.loc); err != nil {
		return nil, err
	}
	return st, nil
}

func (a *app) board(ctx context.Context) error {
	st, err := a.load(ctx)
	if err != nil {
		return err
	}
	a.renderBoard(st.Board(time.Now().In(a.loc)))
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	q := fs.String("q", "", "title search")
	date := fs.String("date", "", "creation date YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := a.load(ctx)
	if err != nil {
		return err
	}
	switch {
	case *date != "":
		day, err := model.ParseTime(*date, time.UTC)
		if err != nil {
			return fmt.Errorf("date %q: %w", *date, err)
		}
		st.ApplyDate(day)
	default:
		st.ApplySearch(*q)
	}
	if len(st.View) == 0 {
		fmt.Fprintln(a.out, "No Tasks Found")
		return nil
	}
	a.renderTable(st.View)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var req client.CreateTaskRequest
	fs.StringVar(&req.Title, "title", "", "title")
	fs.StringVar(&req.Description, "description", "", "description")
	fs.StringVar(&req.Priority, "priority", "Low", "Low|Moderate|Medium|High")
	fs.StringVar(&req.DueDate, "due", "", "due date YYYY-MM-DD")
	fs.StringVar(&req.Status, "status", "", "initial status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	req.UserID = a.session.UserID

	id, err := a.api.CreateTask(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Task %d created\n", id)
	return nil
}

func (a *app) move(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: taskctl move <id> <column>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}
	col, ok := board.ParseColumn(args[1])
	if !ok {
		return fmt.Errorf("unknown column %q", args[1])
	}

	st, err := a.load(ctx)
	if err != nil {
		return err
	}
	next, err := a.api.Move(ctx, st, a.session.UserID, id, col, a.tr, a.loc)
	if err != nil {
		// st now holds the stored state
		a.renderBoard(st.Board(time.Now().In(a.loc)))
		return err
	}
	fmt.Fprintf(a.out, "Task %d is now %s\n", id, next)
	return nil
}

func (a *app) focus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("focus", flag.ContinueOnError)
	minutes := fs.Int("minutes", focus.DefaultMinutes, "session length")
	q := fs.String("q", "", "narrow the candidate list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := a.load(ctx)
	if err != nil {
		return err
	}
	st.ApplySearch(*q)
	candidates := board.FocusCandidates(st.View)

	if fs.NArg() == 0 {
		if len(candidates) == 0 {
			fmt.Fprintln(a.out, "No Tasks Found")
			return nil
		}
		a.renderTable(candidates)
		return errors.New("pick a task id")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", fs.Arg(0))
	}
	var selected *model.Task
	for i := range candidates {
		if candidates[i].ID == id {
			selected = &candidates[i]
		}
	}
	if selected == nil {
		return fmt.Errorf("task %d is not open for focus", id)
	}
	st.Select(id)

	done := make(chan model.Task, 1)
	timer := focus.New(
		focus.OnTick(func(d time.Duration) { fmt.Fprintf(a.out, "\r%s  ", focus.Format(d)) }),
		focus.OnDone(func(t model.Task) { done <- t }),
	)
	timer.Select(*st.Selected)
	if err := timer.SetDuration(*minutes); err != nil {
		return err
	}
	if err := timer.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Focusing on %q for %s\n%s", selected.Title, focus.Format(timer.Remaining()), timer.Display())

	select {
	case t := <-done:
		fmt.Fprintf(a.out, "\nTime is up for %q\n", t.Title)
	case <-ctx.Done():
		timer.Pause()
		fmt.Fprintf(a.out, "\nPaused with %s left\n", timer.Display())
	}
	timer.Wait()
	return nil
}

func (a *app) renderBoard(b board.Board) {
	section := func(title string, tasks []model.Task) {
		fmt.Fprintf(a.out, "== %s (%d)\n", title, len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(a.out, "  #%d %s [%s]\n", t.ID, t.Title, t.Priority)
		}
	}
	section("Not Started", b.NotStarted)
	section("In Progress", b.InProgress)
	section("Due Today", b.DueToday)

	fmt.Fprintf(a.out, "== Completed (%d)\n", len(b.Completed))
	if latest := b.LatestCompleted(); latest != nil {
		fmt.Fprintf(a.out, "  #%d %s, completed %s\n", latest.ID, latest.Title, model.FormatTimestamp(latest.CompletedAt))
	}

	p := b.Percentages
	fmt.Fprintf(a.out, "\nCompleted %d%%  In Progress %d%%  Not Started %d%%\n", p.Completed, p.InProgress, p.NotStarted)
}

func (a *app) renderTable(tasks []model.Task) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTITLE\tPRIORITY\tSTATUS\tDUE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.CreatedAt.In(a.loc).Format("2006-01-02 15:04"),
			strings.TrimSpace(t.Title),
			t.Priority,
			t.Status,
			model.FormatDate(t.DueDate),
		)
	}
	w.Flush()
}
