package testutils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/alchemorsel/client/internal/domain/dayplan"
	"github.com/alchemorsel/client/internal/domain/recipe"
	"github.com/alchemorsel/client/internal/domain/user"
)

// LoginFormat selects how the fake API returns a login token
type LoginFormat int

const (
	// LoginJSONString answers with the token as a JSON string
	LoginJSONString LoginFormat = iota
	// LoginObject answers with {"token": ...}
	LoginObject
	// LoginPlainText answers with the bare token as text/plain
	LoginPlainText
)

// RecordedRequest is a request seen by the fake API
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
}

type fakeAccount struct {
	user     user.User
	password string
}

// FakeAPI is an in-memory implementation of the remote recipe API served
// by gin over httptest.
type FakeAPI struct {
	Server  *httptest.Server
	Factory *Factory

	mu          sync.Mutex
	loginFormat LoginFormat
	accounts    map[string]*fakeAccount // by email
	tokens      map[string]string       // token -> user id
	recipes     []recipe.Recipe
	favorites   map[string]map[string]bool
	generated   map[string][]recipe.Recipe
	dayPlans    map[string][]dayplan.DayPlan
	requests    []RecordedRequest
}

// NewFakeAPI starts the fake API with a few seeded recipes. It is closed
// when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := &FakeAPI{
		Factory:   NewFactory(42),
		accounts:  make(map[string]*fakeAccount),
		tokens:    make(map[string]string),
		favorites: make(map[string]map[string]bool),
		generated: make(map[string][]recipe.Recipe),
		dayPlans:  make(map[string][]dayplan.DayPlan),
	}
	api.recipes = api.Factory.Recipes(3)

	api.Server = httptest.NewServer(api.routes())
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the API base URL
func (a *FakeAPI) URL() string {
	return a.Server.URL
}

// SetLoginFormat changes the shape of login responses
func (a *FakeAPI) SetLoginFormat(f LoginFormat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loginFormat = f
}

// AddUser registers an account directly and returns it
func (a *FakeAPI) AddUser(email, password string) user.User {
	a.mu.Lock()
	defer a.mu.Unlock()

	u := a.Factory.User()
	u.Email = email
	a.accounts[email] = &fakeAccount{user: u, password: password}
	return u
}

// IssueToken returns a valid token for the account with email
func (a *FakeAPI) IssueToken(email string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issueTokenLocked(a.accounts[email].user.ID)
}

// RevokeTokens invalidates every issued token
func (a *FakeAPI) RevokeTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = make(map[string]string)
}

// Recipes returns the seeded public recipes
func (a *FakeAPI) Recipes() []recipe.Recipe {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recipe.Recipe(nil), a.recipes...)
}

// SetRecipes replaces the public recipes
func (a *FakeAPI) SetRecipes(recipes []recipe.Recipe) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recipes = recipes
}

// AddDayPlan stores a plan for the user. When wrapped, it is listed inside
// a dailyMealPlan envelope with its own id.
func (a *FakeAPI) AddDayPlan(userID string, plan dayplan.DayPlan, wrapped bool) dayplan.DayPlan {
	a.mu.Lock()
	defer a.mu.Unlock()

	if wrapped {
		inner := plan
		plan = dayplan.DayPlan{ID: a.Factory.ID(), DailyMealPlan: &inner}
	}
	a.dayPlans[userID] = append(a.dayPlans[userID], plan)
	return plan
}

// Requests returns the requests seen so far
func (a *FakeAPI) Requests() []RecordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]RecordedRequest(nil), a.requests...)
}

// CountRequests counts requests matching method and path
func (a *FakeAPI) CountRequests(method, path string) int {
	n := 0
	for _, r := range a.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (a *FakeAPI) issueTokenLocked(userID string) string {
	token := "token-" + userID + "-" + a.Factory.faker.LetterN(8)
	a.tokens[token] = userID
	return token
}

func (a *FakeAPI) routes() *gin.Engine {
	r := gin.New()
	r.Use(a.record)

	r.POST("/register", a.register)
	r.POST("/login", a.login)
	r.GET("/recipes", a.listRecipes)
	r.GET("/recipes/:id", a.getRecipe)

	auth := r.Group("/", a.authenticate)
	auth.GET("/users/me", a.me)
	auth.PUT("/edit/:id", a.edit)
	auth.DELETE("/user/:id", a.deleteUser)
	auth.POST("/user/upload-avatar", a.uploadAvatar)
	auth.PUT("/recipes/:id/favorite", a.toggleFavorite)
	auth.GET("/recipes/favorites", a.listFavorites)
	auth.GET("/recipes/user/generated", a.listGenerated)
	auth.POST("/chat", a.chat)
	auth.POST("/dayPlan", a.createDayPlan)
	auth.GET("/userDayPlans", a.listDayPlans)

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "<!DOCTYPE html><html><body><pre>Cannot %s %s</pre></body></html>", c.Request.Method, c.Request.URL.Path)
	})
	return r
}

func (a *FakeAPI) record(c *gin.Context) {
	a.mu.Lock()
	a.requests = append(a.requests, RecordedRequest{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
	})
	a.mu.Unlock()
	c.Next()
}

func (a *FakeAPI) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	a.mu.Lock()
	userID, ok := a.tokens[token]
	a.mu.Unlock()

	if token == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Set("userID", userID)
	c.Next()
}

func (a *FakeAPI) accountByID(id string) *fakeAccount {
	for _, acc := range a.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func (a *FakeAPI) register(c *gin.Context) {
	var reg user.Registration
	if err := c.ShouldBindJSON(&reg); err != nil || reg.Email == "" || reg.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.accounts[reg.Email]; exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists", "field": "email"})
		return
	}
	u := user.User{
		ID:        a.Factory.ID(),
		Name:      reg.Name,
		Email:     reg.Email,
		Gender:    reg.Gender,
		Weight:    reg.Weight,
		Height:    reg.Height,
		Objective: reg.Objective,
		Ability:   reg.Ability,
		TypeDiet:  reg.TypeDiet,
		Allergies: reg.Allergies,
	}
	a.accounts[reg.Email] = &fakeAccount{user: u, password: reg.Password}
	c.JSON(http.StatusCreated, u)
}

func (a *FakeAPI) login(c *gin.Context) {
	var creds user.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[creds.Email]
	if !ok || acc.password != creds.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}
	token := a.issueTokenLocked(acc.user.ID)

	switch a.loginFormat {
	case LoginObject:
		c.JSON(http.StatusOK, gin.H{"token": token})
	case LoginPlainText:
		c.String(http.StatusOK, token)
	default:
		c.JSON(http.StatusOK, token)
	}
}

func (a *FakeAPI) me(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc := a.accountByID(c.GetString("userID"))
	if acc == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	c.JSON(http.StatusOK, acc.user)
}

func (a *FakeAPI) edit(c *gin.Context) {
	var update user.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid profile"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c.Param("id") != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"message": "You can only edit your own profile"})
		return
	}
	acc := a.accountByID(c.Param("id"))
	acc.user = update.Apply(acc.user)
	c.JSON(http.StatusOK, acc.user)
}

func (a *FakeAPI) deleteUser(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc := a.accountByID(c.Param("id"))
	if acc == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	delete(a.accounts, acc.user.Email)
	for token, id := range a.tokens {
		if id == acc.user.ID {
			delete(a.tokens, token)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (a *FakeAPI) uploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "An image file is required"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	acc := a.accountByID(c.GetString("userID"))
	acc.user.Avatar = "https://cdn.example.com/avatars/" + file.Filename
	c.JSON(http.StatusOK, gin.H{"url": acc.user.Avatar})
}

func (a *FakeAPI) listRecipes(c *gin.Context) {
	c.JSON(http.StatusOK, a.Recipes())
}

func (a *FakeAPI) findRecipeLocked(id, userID string) (recipe.Recipe, bool) {
	for _, r := range a.recipes {
		if r.ID == id {
			return r, true
		}
	}
	for _, r := range a.generated[userID] {
		if r.ID == id {
			return r, true
		}
	}
	return recipe.Recipe{}, false
}

func (a *FakeAPI) getRecipe(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.findRecipeLocked(c.Param("id"), "")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *FakeAPI) toggleFavorite(c *gin.Context) {
	userID := c.GetString("userID")

	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.findRecipeLocked(c.Param("id"), userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Recipe not found"})
		return
	}
	if a.favorites[userID] == nil {
		a.favorites[userID] = make(map[string]bool)
	}
	a.favorites[userID][r.ID] = !a.favorites[userID][r.ID]
	r.IsFavorite = a.favorites[userID][r.ID]
	c.JSON(http.StatusOK, r)
}

func (a *FakeAPI) listFavorites(c *gin.Context) {
	userID := c.GetString("userID")

	a.mu.Lock()
	defer a.mu.Unlock()
	out := []recipe.Recipe{}
	for _, r := range append(append([]recipe.Recipe(nil), a.recipes...), a.generated[userID]...) {
		if a.favorites[userID][r.ID] {
			r.IsFavorite = true
			out = append(out, r)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (a *FakeAPI) listGenerated(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]recipe.Recipe{}, a.generated[c.GetString("userID")]...)
	c.JSON(http.StatusOK, out)
}

func (a *FakeAPI) chat(c *gin.Context) {
	var req recipe.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Ingredients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Ingredients are required"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.Factory.Recipe()
	r.Name = "Dish with " + strings.Join(req.Ingredients, ", ")
	r.Ingredients = nil
	for _, ingredient := range req.Ingredients {
		r.Ingredients = append(r.Ingredients, recipe.Text(ingredient))
	}
	userID := c.GetString("userID")
	a.generated[userID] = append(a.generated[userID], r)
	c.JSON(http.StatusOK, gin.H{"createdRecipes": []recipe.Recipe{r}})
}

func (a *FakeAPI) createDayPlan(c *gin.Context) {
	var req dayplan.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StartDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "startDate and userPreferences are required"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	userID := c.GetString("userID")
	plan := a.Factory.DayPlan(req.StartDate)
	a.dayPlans[userID] = append(a.dayPlans[userID], plan)
	c.JSON(http.StatusCreated, plan)
}

func (a *FakeAPI) listDayPlans(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]dayplan.DayPlan{}, a.dayPlans[c.GetString("userID")]...)
	c.JSON(http.StatusOK, out)
}
