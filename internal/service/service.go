// Package service exposes the address book as a REST API. It is a second front end besides the
// command loop and offers the same operations.
package service

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/birthday"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
	api "gitlab.com/dirk.krummacker/contacts-assistant/pkg/model"
)

// Service serves one address book. Requests are handled one at a time.
type Service struct {
	mu     sync.Mutex
	book   *model.Directory
	window int
	now    func() time.Time
	save   func(*model.Directory) error
	log    *logger.Logger
}

// Options configures a Service. Window is used as given, 0 reports only birthdays due today.
// The other zero values select the defaults.
type Options struct {
	Window int                          // default window of GET /birthdays
	Now    func() time.Time             // source of today's date
	Save   func(*model.Directory) error // called after every change
	Log    *logger.Logger
}

// New returns a Service for book.
func New(book *model.Directory, opts Options) *Service {
	s := &Service{
		book:   book,
		window: opts.Window,
		now:    opts.Now,
		save:   opts.Save,
		log:    opts.Log,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. With
// requestLogging turned off, gin's request logger is not installed.
func (s *Service) SetupHttpRouter(requestLogging bool) *gin.Engine {
	var router *gin.Engine
	if requestLogging {
		router = gin.Default()
	} else {
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.Use(s.serialize)
	router.GET("/contacts", s.findContacts)
	router.GET("/contacts/:name", s.findContact)
	router.PUT("/contacts/:name", s.putContact)
	router.DELETE("/contacts/:name", s.deleteContact)
	router.POST("/contacts/:name/phones", s.addPhone)
	router.PUT("/contacts/:name/phones/:phone", s.changePhone)
	router.DELETE("/contacts/:name/phones/:phone", s.deletePhone)
	router.PUT("/contacts/:name/birthday", s.setBirthday)
	router.GET("/birthdays", s.findBirthdays)
	return router
}

// serialize makes sure that only one request works on the address book at any time.
func (s *Service) serialize(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Next()
}

// findContacts responds with the list of all contacts as JSON, in the order in which they were
// added.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts
func (s *Service) findContacts(c *gin.Context) {
	contacts := make([]api.Contact, 0, s.book.Len())
	for _, record := range s.book.All() {
		contacts = append(contacts, toContact(record))
	}
	c.IndentedJSON(http.StatusOK, contacts)
}

// findContact responds with the contact whose name matches the name parameter of the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika
func (s *Service) findContact(c *gin.Context) {
	record, ok := s.book.FindRecord(c.Param("name"))
	if !ok {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, toContact(record))
}

// putContact creates the contact named in the request URL from the JSON body, replacing an
// existing contact of the same name. The name in the body is ignored.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika --request "PUT" --include --header "Content-Type: application/json" --data '{"phones": ["0815471100"], "birthday": "02.03.1969"}'
func (s *Service) putContact(c *gin.Context) {
	var submitted api.Contact
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	name := c.Param("name")
	record, err := model.NewRecord(name, submitted.Phones...)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if submitted.Birthday != nil {
		if err := record.SetBirthday(*submitted.Birthday); err != nil {
			s.abortWithError(c, err)
			return
		}
	}
	_, existed := s.book.FindRecord(name)
	s.book.AddRecord(record)
	if !s.persist(c) {
		return
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	c.IndentedJSON(status, toContact(record))
}

// deleteContact deletes the contact named in the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika --request "DELETE"
func (s *Service) deleteContact(c *gin.Context) {
	if err := s.book.DeleteRecord(c.Param("name")); err != nil {
		s.abortWithError(c, err)
		return
	}
	if !s.persist(c) {
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

// addPhone adds the phone number of the JSON body to the contact. A contact that does not exist
// yet is created.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika/phones --request "POST" --include --header "Content-Type: application/json" --data '{"phone": "0815471100"}'
func (s *Service) addPhone(c *gin.Context) {
	var submitted api.PhoneRequest
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	name := c.Param("name")
	_, existed := s.book.FindRecord(name)
	if err := s.book.AddPhone(name, submitted.Phone); err != nil {
		s.abortWithError(c, err)
		return
	}
	s.respondWithContact(c, name, existed)
}

// changePhone replaces the phone number in the request URL by the one in the JSON body.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika/phones/0815471100 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone": "0815471199"}'
func (s *Service) changePhone(c *gin.Context) {
	var submitted api.PhoneRequest
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	name := c.Param("name")
	if err := s.book.ChangePhone(name, c.Param("phone"), submitted.Phone); err != nil {
		s.abortWithError(c, err)
		return
	}
	s.respondWithContact(c, name, true)
}

// deletePhone removes the phone number in the request URL from the contact. Removing a number
// the contact does not have is not an error.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika/phones/0815471100 --request "DELETE"
func (s *Service) deletePhone(c *gin.Context) {
	name := c.Param("name")
	if err := s.book.DeletePhone(name, c.Param("phone")); err != nil {
		s.abortWithError(c, err)
		return
	}
	s.respondWithContact(c, name, true)
}

// setBirthday sets the birthday of the contact to the DD.MM.YYYY date of the JSON body.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/Erika/birthday --request "PUT" --include --header "Content-Type: application/json" --data '{"birthday": "02.03.1969"}'
func (s *Service) setBirthday(c *gin.Context) {
	var submitted api.BirthdayRequest
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	name := c.Param("name")
	if err := s.book.AddBirthday(name, submitted.Birthday); err != nil {
		s.abortWithError(c, err)
		return
	}
	s.respondWithContact(c, name, true)
}

// findBirthdays responds with the contacts to congratulate within the next days. The URL
// parameter 'days' overrides the configured window.
//
// REST API calls:
//
//	> curl "http://localhost:8080/birthdays"
//	> curl "http://localhost:8080/birthdays?days=30"
func (s *Service) findBirthdays(c *gin.Context) {
	window := s.window
	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid days parameter"})
			return
		}
		window = n
	}
	upcoming := birthday.Upcoming(s.book, window, s.now())
	result := make([]api.Congratulation, 0, len(upcoming))
	for _, u := range upcoming {
		result = append(result, api.Congratulation{Name: u.Name, CongratulationDate: u.FormattedDate()})
	}
	c.IndentedJSON(http.StatusOK, result)
}

// respondWithContact persists the change and responds with the full contact after the update.
func (s *Service) respondWithContact(c *gin.Context, name string, existed bool) {
	if !s.persist(c) {
		return
	}
	record, ok := s.book.FindRecord(name)
	if !ok {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
	}
	c.IndentedJSON(status, toContact(record))
}

// persist saves the address book after a change. It responds with an internal server error and
// returns false if that fails.
func (s *Service) persist(c *gin.Context) bool {
	if s.save == nil {
		return true
	}
	if err := s.save(s.book); err != nil {
		s.log.Error("saving address book failed", "error", err, "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "could not save address book"})
		return false
	}
	return true
}

// abortWithError maps errors of the data model to HTTP status codes.
func (s *Service) abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, model.ErrInvalidFormat):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		s.log.Error("request failed", "error", err, "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// toContact converts a record into its JSON representation.
func toContact(record *model.Record) api.Contact {
	contact := api.Contact{Name: record.Name(), Phones: []string{}}
	for _, p := range record.Phones() {
		contact.Phones = append(contact.Phones, p.String())
	}
	if b, ok := record.Birthday(); ok {
		text := b.String()
		contact.Birthday = &text
	}
	return contact
}
